package aggregator

import "github.com/BurntSushi/toml"

// Config enumerates the stat fields the Aggregator computes for every
// bucket (spec.md §4.5, §6 "Aggregator configuration"). Unknown keys in the
// decoded document are ignored by toml.Decode itself; missing keys use the
// defaults below.
type Config struct {
	Percentiles   []float64 `toml:"percentiles"`
	HistogramBins []int64   `toml:"histogram_bins"` // microseconds, ascending
	TimePeriods   []int64   `toml:"time_periods"`    // microseconds, ascending
}

// DefaultConfig mirrors the phout.json defaults the original tool ships:
// the usual load-testing percentile ladder and a coarse latency histogram.
func DefaultConfig() Config {
	return Config{
		Percentiles:   []float64{50, 75, 80, 90, 95, 98, 99, 100},
		HistogramBins: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 150, 200, 250, 300, 350, 400, 450, 500, 600, 650, 700, 750, 800, 850, 900, 950, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 4500, 5000, 6000, 7000, 8000, 9000, 10000, 20000, 30000, 40000, 50000, 60000, 70000, 80000, 90000, 100000},
		TimePeriods:   []int64{10000, 100000, 1000000},
	}
}

// LoadConfig decodes an aggregator Config from a TOML document. Keys absent
// from doc keep their DefaultConfig value; keys present in doc but unknown
// to Config are ignored by toml.Decode.
func LoadConfig(doc string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(doc, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
