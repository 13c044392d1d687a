// Command tank-aggregator wires a TankWorker and a TankAggregator together
// for one test run: it is the minimal binary shape original_source's
// bin/harness scripts reduce to once plugin discovery is factored out (out
// of scope, spec.md §1).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Songmu/replaceablewriter"
	"github.com/sirupsen/logrus"

	agg "github.com/nnugumanov/yandex-tank/aggregator"
	"github.com/nnugumanov/yandex-tank/clock"
	"github.com/nnugumanov/yandex-tank/interrupt"
	"github.com/nnugumanov/yandex-tank/reader"
	"github.com/nnugumanov/yandex-tank/sample"
	"github.com/nnugumanov/yandex-tank/tank"
	"github.com/nnugumanov/yandex-tank/worker"
)

func main() {
	var (
		testID       = flag.String("test-id", "", "test identifier (default: generated)")
		artifactsDir = flag.String("artifacts-dir", "artifacts", "artifacts directory")
		lockDir      = flag.String("lock-dir", "/var/lock", "lock directory")
		logFile      = flag.String("log-file", "", "write logs to this file instead of stderr")
		ignoreLock   = flag.Bool("ignore-lock", false, "proceed even if a lock file from another run is present")
		waitLock     = flag.Bool("lock-wait", false, "wait for a busy lock instead of failing immediately")
		configPaths  stringList
		options      stringList
		patches      stringList
	)
	flag.Var(&configPaths, "config", "config file path (repeatable)")
	flag.Var(&options, "option", "key=value config override (repeatable)")
	flag.Var(&patches, "patch", "YAML config patch document (repeatable)")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// logOut wraps whatever writer we start with so a SIGHUP can swap in a
	// freshly reopened file handle without tearing down the logger.
	logOut := replaceablewriter.New(os.Stderr)
	log.SetOutput(logOut)
	if *logFile != "" {
		if f, err := openLogFile(*logFile); err != nil {
			log.WithError(err).Fatal("failed to open log file")
		} else {
			logOut.Replace(f)
		}
	}
	reopenLogOnHUP(logOut, *logFile, log)

	if *testID == "" {
		*testID = time.Now().UTC().Format("20060102_150405")
	}

	if _, err := worker.CombineConfigs(configPaths, options, patches); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	interruptFlag := interrupt.New()
	generator := &noopGenerator{}
	aggregatorConfig := agg.DefaultConfig()

	tankAgg := tank.New(generator, aggregatorConfig, tank.DefaultTerminationTimeout, interruptFlag, log)
	tankAgg.AddResultListener(tank.NewLoggingListener(log))

	plugins := &aggregatorPlugins{aggregator: tankAgg, interrupt: interruptFlag, log: log}

	w := worker.New(*testID, *artifactsDir, *lockDir, plugins)
	w.IgnoreLock = *ignoreLock
	w.WaitLock = *waitLock
	w.Log = log
	w.Interrupt = interruptFlag

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("signal received, stopping")
		w.Stop()
	}()

	os.Exit(w.Run())
}

// aggregatorPlugins adapts a tank.TankAggregator to the worker.Plugins
// lifecycle hooks. It is a thin bridge, not a plugin system: real plugin
// discovery and configuration is out of scope (spec.md §1).
type aggregatorPlugins struct {
	aggregator *tank.TankAggregator
	interrupt  *interrupt.Flag
	log        *logrus.Logger
	stopLoop   chan struct{}
	info       worker.WorkerInfo
}

func (p *aggregatorPlugins) Bind(info worker.WorkerInfo) { p.info = info }

func (p *aggregatorPlugins) Configure() error { return nil }

func (p *aggregatorPlugins) PrepareTest() error { return nil }

func (p *aggregatorPlugins) Cleanup() error { return nil }

func (p *aggregatorPlugins) StartTest() error {
	p.aggregator.StartTest()
	p.stopLoop = make(chan struct{})
	go p.collectLoop()
	return nil
}

// collectLoop drives CollectData on a wall-clock-aligned cadence rather than
// a free-running ticker, so collection boundaries line up with second
// boundaries the same way carbon-relay-ng's flush loop aligns to its own
// interval boundaries.
func (p *aggregatorPlugins) collectLoop() {
	tick := clock.AlignedTick(time.Second, 0, 4)
	for {
		select {
		case <-tick:
			p.aggregator.CollectData(false)
		case <-p.stopLoop:
			return
		}
	}
}

// WaitForFinish blocks until the run is cancelled or the generator's readers
// have naturally ended and both drains have pushed their final element. The
// join against the stats stream happens later, in PostProcess.
func (p *aggregatorPlugins) WaitForFinish() int {
	for !p.interrupt.IsSet() && !p.aggregator.IsAggregationFinished() {
		interrupt.Sleep(reader.DefaultPollPeriod, p.interrupt)
	}
	if p.interrupt.IsSet() && !p.aggregator.IsAggregationFinished() && p.info != nil {
		p.info.ReportError("test cancelled before aggregation finished")
	}
	return 0
}

func (p *aggregatorPlugins) PostProcess(retcode int) int {
	close(p.stopLoop)
	return p.aggregator.EndTest(retcode)
}

// noopGenerator is a placeholder Generator: real load generation is out of
// scope (spec.md §1), consumed only through the Reader contract. It provides
// no readers, so the aggregator runs as a no-op until a real generator is
// wired in by an embedder.
type noopGenerator struct{}

func (noopGenerator) GetReaders() []reader.Reader[sample.Sample] { return nil }

func (noopGenerator) GetStatsReader() reader.Reader[sample.StatsSample] { return nil }

func (noopGenerator) EndTest(retcode int) int { return retcode }

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// reopenLogOnHUP lets an external log-rotation tool (logrotate and
// friends) signal this process to reopen its log file by inode, the same
// SIGHUP convention carbon-relay-ng's own daemon uses. No-op when logging
// to stderr.
func reopenLogOnHUP(out *replaceablewriter.Writer, path string, log *logrus.Logger) {
	if path == "" {
		return
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			f, err := openLogFile(path)
			if err != nil {
				log.WithError(err).Error("failed to reopen log file")
				continue
			}
			out.Replace(f)
			log.Info("log file reopened")
		}
	}()
}

type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
