// Package timechopper implements the watermark-based time bucketer of
// spec.md §4.4: it merges one or more batch sources of samples, groups them
// by integer-second timestamp, and emits each bucket exactly once, in
// strictly increasing ts order, as soon as every contributing source has
// moved past it.
//
// The bucketing algorithm is adapted from carbon-relay-ng's
// aggregator.Aggregator — the same "accumulate into a map keyed by
// quantized timestamp, keep an ordered list of pending keys, flush
// everything at or below a cutoff" shape, generalized here to a watermark
// computed across multiple independent input sequences instead of a single
// wall-clock tick.
package timechopper

import (
	"sort"

	metrics "github.com/Dieterbe/go-metrics"

	"github.com/nnugumanov/yandex-tank/reader"
	"github.com/nnugumanov/yandex-tank/sample"
)

// noWatermark marks a source that hasn't produced any sample yet: while any
// active source is in this state, no bucket is sealed.
const noWatermark = int64(-1)

// TimeChopper merges sources and emits sealed Buckets in ascending ts
// order. It implements reader.Sequence[sample.Bucket].
type TimeChopper struct {
	sources []reader.BatchSource[sample.Sample]
	active  []bool
	highTS  []int64

	buckets   map[int64]*sample.Bucket
	emitQueue []int64 // ascending, ready to hand out

	lastWatermark int64 // highest watermark ever computed; late-sample cutoff
	finalFlushed  bool
	cursor        int // round-robin index into sources

	lateSamples metrics.Counter
}

// New builds a TimeChopper over sources. lateSamples, if non-nil, is
// incremented for every sample discarded because its ts fell below the
// last-emitted watermark (spec.md §4.4 failure mode, §7 LateSample).
func New(sources []reader.BatchSource[sample.Sample], lateSamples metrics.Counter) *TimeChopper {
	tc := &TimeChopper{
		sources:       sources,
		active:        make([]bool, len(sources)),
		highTS:        make([]int64, len(sources)),
		buckets:       make(map[int64]*sample.Bucket),
		lastWatermark: noWatermark,
		lateSamples:   lateSamples,
	}
	for i := range tc.active {
		tc.active[i] = true
		tc.highTS[i] = noWatermark
	}
	return tc
}

// Next returns the next sealed bucket in ascending ts order, or ok == false
// once every source has ended and every remaining bucket has been emitted.
func (tc *TimeChopper) Next() (sample.Bucket, bool) {
	for {
		if len(tc.emitQueue) > 0 {
			return tc.popEmit(), true
		}
		if tc.allEnded() {
			if tc.finalFlushed {
				return sample.Bucket{}, false
			}
			tc.flushRemaining()
			tc.finalFlushed = true
			if len(tc.emitQueue) == 0 {
				return sample.Bucket{}, false
			}
			continue
		}
		tc.pullOnce()
		tc.advanceWatermark()
	}
}

func (tc *TimeChopper) allEnded() bool {
	for _, a := range tc.active {
		if a {
			return false
		}
	}
	return true
}

// pullOnce advances one still-active source by one batch, round-robin.
func (tc *TimeChopper) pullOnce() {
	n := len(tc.sources)
	if n == 0 {
		for i := range tc.active {
			tc.active[i] = false
		}
		return
	}
	for tries := 0; tries < n; tries++ {
		idx := tc.cursor % n
		tc.cursor++
		if !tc.active[idx] {
			continue
		}
		batch, ok := tc.sources[idx].Next()
		if !ok {
			tc.active[idx] = false
			return
		}
		for _, s := range batch {
			tc.accept(idx, s)
		}
		return
	}
}

func (tc *TimeChopper) accept(sourceIdx int, s sample.Sample) {
	if s.TS < tc.lastWatermark {
		if tc.lateSamples != nil {
			tc.lateSamples.Inc(1)
		}
		return
	}
	b, ok := tc.buckets[s.TS]
	if !ok {
		b = &sample.Bucket{TS: s.TS}
		tc.buckets[s.TS] = b
	}
	b.Samples = append(b.Samples, s)
	if s.TS > tc.highTS[sourceIdx] {
		tc.highTS[sourceIdx] = s.TS
	}
}

// advanceWatermark recomputes the global watermark as the minimum
// highest-seen ts over still-active sources, and moves every bucket
// strictly below it into the emit queue, smallest ts first.
func (tc *TimeChopper) advanceWatermark() {
	watermark := noWatermark
	haveAny := false
	for i, a := range tc.active {
		if !a {
			continue
		}
		if tc.highTS[i] == noWatermark {
			// a source with no samples yet holds the watermark at
			// -infinity: nothing can be sealed until it reports in.
			return
		}
		if !haveAny || tc.highTS[i] < watermark {
			watermark = tc.highTS[i]
			haveAny = true
		}
	}
	if !haveAny {
		return
	}
	if watermark > tc.lastWatermark {
		tc.lastWatermark = watermark
	}
	var ready []int64
	for ts := range tc.buckets {
		if ts < watermark {
			ready = append(ready, ts)
		}
	}
	if len(ready) == 0 {
		return
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	tc.emitQueue = append(tc.emitQueue, ready...)
}

// flushRemaining moves every still-buffered bucket into the emit queue in
// ascending order; called once, after all sources have ended.
func (tc *TimeChopper) flushRemaining() {
	var ready []int64
	for ts := range tc.buckets {
		ready = append(ready, ts)
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	tc.emitQueue = append(tc.emitQueue, ready...)
}

func (tc *TimeChopper) popEmit() sample.Bucket {
	ts := tc.emitQueue[0]
	tc.emitQueue = tc.emitQueue[1:]
	b := tc.buckets[ts]
	delete(tc.buckets, ts)
	return *b
}
