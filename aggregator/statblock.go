package aggregator

import "github.com/nnugumanov/yandex-tank/sample"

// Fields holds one number per numeric sample field, used for both Sum and
// Avg in a StatBlock.
type Fields struct {
	Interval float64
	Connect  float64
	Send     float64
	Latency  float64
	Receive  float64
	Size     float64
}

func (f *Fields) add(s sample.Sample) {
	f.Interval += float64(s.Interval)
	f.Connect += float64(s.Connect)
	f.Send += float64(s.Send)
	f.Latency += float64(s.Latency)
	f.Receive += float64(s.Receive)
	f.Size += float64(s.Size)
}

func (f Fields) scaled(n float64) Fields {
	if n == 0 {
		return Fields{}
	}
	return Fields{
		Interval: f.Interval / n,
		Connect:  f.Connect / n,
		Send:     f.Send / n,
		Latency:  f.Latency / n,
		Receive:  f.Receive / n,
		Size:     f.Size / n,
	}
}

// StatBlock is the set of statistics computed for one tag (or "overall")
// within a single bucket (spec.md §3 "stat block").
type StatBlock struct {
	Count int64

	Sum Fields
	Avg Fields

	// Quantiles maps each configured percentile cut-point to the latency
	// (microseconds) at that percentile, computed exactly by linear
	// interpolation on this bucket's sorted latencies.
	Quantiles map[float64]float64

	// Histogram holds one count per HistogramBins edge: Histogram[i] is
	// the number of samples with latency <= HistogramBins[i] and >
	// HistogramBins[i-1] (or >= 0 for i == 0). Samples above the last edge
	// are not counted in any bin.
	Histogram []int64

	// BelowTimePeriod[i] is the count of samples with latency strictly
	// below TimePeriods[i].
	BelowTimePeriod []int64

	NetCodes  map[int]int64
	HTTPCodes map[int]int64
}

func newStatBlock() *StatBlock {
	return &StatBlock{
		Quantiles: make(map[float64]float64),
		NetCodes:  make(map[int]int64),
		HTTPCodes: make(map[int]int64),
	}
}
