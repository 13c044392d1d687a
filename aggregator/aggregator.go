// Package aggregator computes per-second statistics over sealed buckets
// (spec.md §4.5). It is pure per-bucket: no cross-bucket state feeds into
// an emitted Point, beyond the optional auxiliary session-wide digest
// described in SPEC_FULL.md.
package aggregator

import (
	"sort"

	metrics "github.com/Dieterbe/go-metrics"
	"github.com/influxdata/tdigest"

	"github.com/nnugumanov/yandex-tank/reader"
	"github.com/nnugumanov/yandex-tank/sample"
)

// Aggregator wraps a bucket sequence and emits one Point per bucket, in the
// same order.
type Aggregator struct {
	src    reader.Sequence[sample.Bucket]
	config Config

	sessionDigest *tdigest.TDigest
	processed     metrics.Counter
}

// New builds an Aggregator over src using config. processed, if non-nil, is
// incremented once per emitted Point.
func New(src reader.Sequence[sample.Bucket], config Config, processed metrics.Counter) *Aggregator {
	return &Aggregator{
		src:           src,
		config:        config,
		sessionDigest: tdigest.NewWithCompression(100),
		processed:     processed,
	}
}

// Next computes and returns the Point for the next bucket, or ok == false
// once src is exhausted.
func (a *Aggregator) Next() (Point, bool) {
	bucket, ok := a.src.Next()
	if !ok {
		return Point{}, false
	}
	point := a.aggregate(bucket)
	if a.processed != nil {
		a.processed.Inc(1)
	}
	return point, true
}

// SessionDigest returns a snapshot of the latency distribution merged
// across every bucket aggregated so far. It is auxiliary instrumentation,
// not part of any single Point (see SPEC_FULL.md domain-stack notes).
func (a *Aggregator) SessionDigest() *tdigest.TDigest {
	return a.sessionDigest
}

func (a *Aggregator) aggregate(bucket sample.Bucket) Point {
	byTag := make(map[string][]sample.Sample)
	for _, s := range bucket.Samples {
		byTag[s.Tag] = append(byTag[s.Tag], s)
	}

	point := Point{TS: bucket.TS, Tagged: make(map[string]*StatBlock)}
	point.Overall = a.statBlock(bucket.Samples)
	for tag, samples := range byTag {
		point.Tagged[tag] = a.statBlock(samples)
	}
	return point
}

func (a *Aggregator) statBlock(samples []sample.Sample) *StatBlock {
	sb := newStatBlock()
	sb.Count = int64(len(samples))
	if len(samples) == 0 {
		a.fillQuantiles(sb, nil)
		a.fillHistogram(sb, nil)
		a.fillTimePeriods(sb, nil)
		return sb
	}

	latencies := make([]float64, 0, len(samples))
	for _, s := range samples {
		sb.Sum.add(s)
		sb.NetCodes[s.NetCode]++
		sb.HTTPCodes[s.HTTPCode]++
		lat := float64(s.Latency)
		latencies = append(latencies, lat)
		a.sessionDigest.Add(lat, 1)
	}
	sb.Avg = sb.Sum.scaled(float64(sb.Count))

	sort.Float64s(latencies)
	a.fillQuantiles(sb, latencies)
	a.fillHistogram(sb, latencies)
	a.fillTimePeriods(sb, latencies)
	return sb
}

// fillQuantiles computes each configured percentile by linear interpolation
// on the already-sorted latencies, exact because the bucket is fully
// materialized (spec.md §4.5).
func (a *Aggregator) fillQuantiles(sb *StatBlock, sorted []float64) {
	for _, p := range a.config.Percentiles {
		sb.Quantiles[p] = percentile(sorted, p)
	}
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(n-1)
	lo := int(rank)
	if lo < 0 {
		lo = 0
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func (a *Aggregator) fillHistogram(sb *StatBlock, sorted []float64) {
	sb.Histogram = make([]int64, len(a.config.HistogramBins))
	if len(a.config.HistogramBins) == 0 {
		return
	}
	for _, lat := range sorted {
		idx := sort.Search(len(a.config.HistogramBins), func(i int) bool {
			return float64(a.config.HistogramBins[i]) >= lat
		})
		if idx == len(a.config.HistogramBins) {
			// above the last edge: outside every bin.
			continue
		}
		sb.Histogram[idx]++
	}
}

func (a *Aggregator) fillTimePeriods(sb *StatBlock, sorted []float64) {
	sb.BelowTimePeriod = make([]int64, len(a.config.TimePeriods))
	for i, threshold := range a.config.TimePeriods {
		// sorted is ascending, so count-below is the search insertion
		// point of threshold.
		sb.BelowTimePeriod[i] = int64(sort.Search(len(sorted), func(j int) bool {
			return sorted[j] >= float64(threshold)
		}))
	}
}
