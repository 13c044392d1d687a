// Package tank implements TankAggregator (spec.md §4.7): it orchestrates
// the measurement and stats drains, joins their output on ts, and dispatches
// matched pairs to registered listeners.
package tank

import (
	"sort"
	"time"

	metrics "github.com/Dieterbe/go-metrics"
	"github.com/sirupsen/logrus"

	agg "github.com/nnugumanov/yandex-tank/aggregator"
	"github.com/nnugumanov/yandex-tank/drain"
	"github.com/nnugumanov/yandex-tank/interrupt"
	"github.com/nnugumanov/yandex-tank/reader"
	"github.com/nnugumanov/yandex-tank/sample"
	"github.com/nnugumanov/yandex-tank/stats"
	"github.com/nnugumanov/yandex-tank/timechopper"
)

// DefaultTerminationTimeout is the default shutdown budget (spec.md §4.7).
const DefaultTerminationTimeout = 60 * time.Second

// TankAggregator is the plugin that manages aggregation and stats
// collection for one test run.
type TankAggregator struct {
	Generator           Generator
	AggregatorConfig    agg.Config
	PollPeriod          time.Duration
	TerminationTimeout  time.Duration
	Log                 *logrus.Logger

	interrupt *interrupt.Flag

	dataQueue  *drain.Queue[agg.Point]
	statsQueue *drain.Queue[sample.StatsSample]

	dataCache map[int64]agg.Point
	statCache map[int64]sample.StatsSample

	dataDrain  *drain.Drain[agg.Point]
	statsDrain *drain.Drain[sample.StatsSample]

	statsReader reader.Reader[sample.StatsSample]

	listeners []Listener

	lateSamples metrics.Counter
	processed   metrics.Counter
}

// New builds a TankAggregator. interruptFlag may be nil; a fresh one is
// created in that case.
func New(generator Generator, config agg.Config, terminationTimeout time.Duration, interruptFlag *interrupt.Flag, log *logrus.Logger) *TankAggregator {
	if terminationTimeout <= 0 {
		terminationTimeout = DefaultTerminationTimeout
	}
	if interruptFlag == nil {
		interruptFlag = interrupt.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TankAggregator{
		Generator:          generator,
		AggregatorConfig:   config,
		PollPeriod:         reader.DefaultPollPeriod,
		TerminationTimeout: terminationTimeout,
		Log:                log,
		interrupt:          interruptFlag,
		dataQueue:          drain.NewQueue[agg.Point](),
		statsQueue:         drain.NewQueue[sample.StatsSample](),
		dataCache:          make(map[int64]agg.Point),
		statCache:          make(map[int64]sample.StatsSample),
		lateSamples:        stats.Counter("unit=Sample.kind=late"),
		processed:          stats.Counter("unit=Bucket.kind=processed"),
	}
}

// AddResultListener registers a listener, called in registration order on
// every matched (data, stats) pair.
func (t *TankAggregator) AddResultListener(l Listener) {
	t.listeners = append(t.listeners, l)
}

// StartTest acquires readers from the generator and launches both drains.
// If the generator provides no reader or no stats reader, the aggregator
// becomes a no-op (spec.md §4.7 step 1): EndTest still works.
func (t *TankAggregator) StartTest() {
	readers := t.Generator.GetReaders()
	t.statsReader = t.Generator.GetStatsReader()

	if len(readers) == 0 || t.statsReader == nil {
		t.Log.Warn("generator not found: generator must provide a reader and a stats reader")
		return
	}

	poller := reader.NewPoller(t.PollPeriod, t.interrupt)

	sources := make([]reader.BatchSource[sample.Sample], len(readers))
	for i, r := range readers {
		sources[i] = reader.Poll(poller, r)
	}
	chopper := timechopper.New(sources, t.lateSamples)
	pipeline := agg.New(chopper, t.AggregatorConfig, t.processed)
	t.dataDrain = drain.New[agg.Point](pipeline, t.dataQueue)
	if err := t.dataDrain.Start(); err != nil {
		t.Log.WithError(err).Error("failed to start data drain")
	}

	statsSource := reader.NewChopper(reader.Poll(poller, t.statsReader))
	t.statsDrain = drain.New[sample.StatsSample](statsSource, t.statsQueue)
	if err := t.statsDrain.Start(); err != nil {
		t.Log.WithError(err).Error("failed to start stats drain")
	}
}

// CollectData drains both queues, joins newly arrived items against the
// opposite cache, and notifies listeners for every match. When end is
// true it additionally performs the final flush (spec.md §4.7): every
// remaining data_cache entry is delivered with synthetic stats, in
// ascending ts order, and any remaining stat_cache entries are discarded.
//
// CollectData returns whether either cache still holds unmatched entries
// once it returns — the "more data pending" signal that replaces the
// original's always-(-1) is_test_finished (see SPEC_FULL.md Open Question).
func (t *TankAggregator) CollectData(end bool) (morePending bool) {
	data := t.dataQueue.DrainAll()
	statsItems := t.statsQueue.DrainAll()

	for _, item := range data {
		if stat, ok := t.statCache[item.TS]; ok {
			delete(t.statCache, item.TS)
			t.notify(item, stat)
		} else {
			t.dataCache[item.TS] = item
		}
	}
	for _, item := range statsItems {
		if data, ok := t.dataCache[item.TS]; ok {
			delete(t.dataCache, item.TS)
			t.notify(data, item)
		} else {
			t.statCache[item.TS] = item
		}
	}

	if end && len(t.dataCache) > 0 {
		tsList := make([]int64, 0, len(t.dataCache))
		for ts := range t.dataCache {
			tsList = append(tsList, ts)
		}
		sort.Slice(tsList, func(i, j int) bool { return tsList[i] < tsList[j] })
		for _, ts := range tsList {
			item := t.dataCache[ts]
			delete(t.dataCache, ts)
			t.notify(item, sample.SyntheticStats(ts))
		}
	}
	if end {
		t.statCache = make(map[int64]sample.StatsSample)
	}

	return len(t.dataCache) > 0 || len(t.statCache) > 0
}

// IsAggregationFinished reports whether both drains have observed
// end-of-stream and pushed their final element.
func (t *TankAggregator) IsAggregationFinished() bool {
	return t.dataDrain != nil && t.statsDrain != nil && t.dataDrain.Finished() && t.statsDrain.Finished()
}

// EndTest runs the shutdown sequence of spec.md §4.7 and returns the final
// retcode.
func (t *TankAggregator) EndTest(retcode int) int {
	budget := newTimeouter(t.TerminationTimeout)
	retcode = t.Generator.EndTest(retcode)

	if t.statsReader != nil {
		t.Log.Info("closing stats reader")
		if err := t.statsReader.Close(); err != nil {
			t.Log.WithError(err).Warn("error closing stats reader")
		}
	}

	if t.dataDrain != nil {
		timeout := budget.remaining()
		t.Log.Infof("waiting for data drain to finish for %s", timeout)
		t.dataDrain.Join(timeout)
		if t.dataDrain.IsAlive() {
			t.Log.Warn("data drain did not finish in time, some data might be lost")
		}
		t.dataDrain.Close()

		timeout = budget.remaining()
		t.Log.Infof("waiting for stats drain to finish for %s", timeout)
		t.statsDrain.Join(timeout)
		if t.statsDrain.IsAlive() {
			t.Log.Warn("stats drain did not finish in time, some data might be lost")
		}
		t.statsDrain.Close()
	}

	t.Log.Info("collecting remaining data")
	t.CollectData(true)
	return retcode
}

// notify calls every registered listener in order. A listener that panics
// is logged and skipped; the loop never aborts because of one (spec.md §7
// ListenerError, §9 Design Note "Listener dispatch").
func (t *TankAggregator) notify(data agg.Point, stat sample.StatsSample) {
	for _, l := range t.listeners {
		t.callListener(l, data, stat)
	}
}

func (t *TankAggregator) callListener(l Listener, data agg.Point, stat sample.StatsSample) {
	defer func() {
		if r := recover(); r != nil {
			t.Log.Errorf("listener panicked, skipping: %v", r)
		}
	}()
	l.OnAggregatedData(data, stat)
}
