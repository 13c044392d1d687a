package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nnugumanov/yandex-tank/interrupt"
	"github.com/nnugumanov/yandex-tank/stats"
)

// DefaultTerminationTimeout is not read by TankWorker: its cleanup chain
// and finish status write run without a time bound. The aggregator's drain
// join budget is tank.DefaultTerminationTimeout.
const DefaultTerminationTimeout = 0

// TankWorker drives one test's lifecycle end to end: acquire the lock,
// configure and prepare plugins, validate ammo, optionally wait for an
// external run signal, run the test, post-process, and always clean up and
// record a FinishStatus — the Go shape of original_source's TankWorker.run.
type TankWorker struct {
	TestID       string
	ArtifactsDir string
	LockDir      string
	IgnoreLock   bool
	WaitLock     bool

	AmmoValidationPolicy AmmoValidationPolicy
	ValidateAmmo         AmmoValidator

	Plugins Plugins

	// RunShootingEvent gates TestRunning on an external command; nil means
	// "start immediately" (original_source's _dummy_event default).
	RunShootingEvent *RunSignal

	Log       *logrus.Logger
	Interrupt *interrupt.Flag

	mu          sync.Mutex
	status      Status
	retcode     int
	msgs        []string
	coreErrors  []string
	lunaparkID  string
	lunaparkURL string
	autostop    *Autostop
}

// New returns a TankWorker in TestInitiated, filling any unset optional
// fields with the defaults original_source applies.
func New(testID, artifactsDir, lockDir string, plugins Plugins) *TankWorker {
	return &TankWorker{
		TestID:               testID,
		ArtifactsDir:         artifactsDir,
		LockDir:              lockDir,
		AmmoValidationPolicy: AmmoFailOnError,
		Plugins:              plugins,
		RunShootingEvent:     AlreadySet(),
		Log:                  logrus.StandardLogger(),
		Interrupt:            interrupt.New(),
		status:               TestInitiated,
	}
}

// Status returns the worker's current lifecycle state.
func (w *TankWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *TankWorker) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
	stats.Gauge("worker.status." + string(s)).Update(1)
	w.Log.WithField("status", s).Info("status change")
}

func (w *TankWorker) setRetcode(rc int) {
	w.mu.Lock()
	w.retcode = rc
	w.mu.Unlock()
}

// addMsg appends a line to the accumulated tank message, the Go analogue of
// original_source's self._msgs/add_msgs — GetStatus joins them with "\n",
// same as that class's msg property.
func (w *TankWorker) addMsg(msg string) {
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
}

// ReportError records a non-fatal error surfaced by Plugins during the run
// (original_source's self.core.errors). It does not abort the run; the
// accumulated errors are folded into FinishStatus.TankMsg by the
// "propagate core errors" cleanup step registered in runBody.
func (w *TankWorker) ReportError(msg string) {
	w.mu.Lock()
	w.coreErrors = append(w.coreErrors, msg)
	w.mu.Unlock()
}

// SetLunaparkInfo records the uploader job id/url a Plugins implementation
// obtained during the run, mirroring original_source's
// self.info.get_value(['uploader', 'job_no'/'web_link']).
func (w *TankWorker) SetLunaparkInfo(jobID, url string) {
	w.mu.Lock()
	w.lunaparkID = jobID
	w.lunaparkURL = url
	w.mu.Unlock()
}

// SetAutostop records why an autostop condition fired, mirroring
// original_source's self.info.get_value(['autostop', ...]) lookups.
func (w *TankWorker) SetAutostop(a Autostop) {
	w.mu.Lock()
	w.autostop = &a
	w.mu.Unlock()
}

// GetStatus returns the FinishStatus snapshot original_source's
// TankWorker.get_status returns at any point in the run, not only at exit.
func (w *TankWorker) GetStatus() FinishStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return FinishStatus{
		StatusCode:  w.status,
		ExitCode:    w.retcode,
		TestID:      w.TestID,
		TankMsg:     strings.Join(w.msgs, "\n"),
		LunaparkID:  w.lunaparkID,
		LunaparkURL: w.lunaparkURL,
		Autostop:    w.autostop,
	}
}

// Stop requests cooperative cancellation; the run loop notices it at its
// next poll point (spec.md §5).
func (w *TankWorker) Stop() {
	w.Interrupt.Set()
}

// Run executes the full lifecycle and returns the process exit code,
// mirroring original_source TankWorker.run's top-level try/finally: cleanups
// always run LIFO and a FinishStatus is always saved, regardless of where in
// the body an error originated.
func (w *TankWorker) Run() int {
	cleanups := &cleanupStack{}
	defer func() {
		cleanups.runAll(func(name string, recovered any) {
			w.Log.WithField("cleanup", name).Errorf("cleanup panicked: %v", recovered)
		})
		if err := saveFinishStatus(w.ArtifactsDir, w.GetStatus()); err != nil {
			w.Log.WithError(err).Error("failed to save finish status")
		}
	}()

	err := w.runBody(cleanups)
	w.setStatus(TestFinished)
	if err != nil {
		w.Log.WithError(err).Error("test run failed")
		w.addMsg(err.Error())
		w.setRetcode(1)
	}
	return w.GetStatus().ExitCode
}

// runBody registers the cleanup chain in the order original_source's run()
// adds to its Cleanup context manager: propagate_core_errors first (so it
// runs LAST, right before the finish status is saved), then the log-handler
// teardown, then lock release, then plugin cleanup — each step runs in
// reverse of its registration order (spec.md §4.8 step 2).
func (w *TankWorker) runBody(cleanups *cleanupStack) error {
	w.setStatus(TestPreparing)

	cleanups.add("propagate core errors", func() {
		w.mu.Lock()
		errs := append([]string(nil), w.coreErrors...)
		w.mu.Unlock()
		if len(errs) > 0 {
			w.addMsg(strings.Join(errs, "\n"))
		}
	})

	if err := os.MkdirAll(w.ArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	logHook, err := newFileLogHook(filepath.Join(w.ArtifactsDir, "tank.log"))
	if err != nil {
		return fmt.Errorf("open tank.log: %w", err)
	}
	w.Log.AddHook(logHook)
	cleanups.add("cleanup log handlers", func() {
		logHook.disable()
		if closeErr := logHook.Close(); closeErr != nil {
			w.Log.WithError(closeErr).Warn("failed to close tank.log")
		}
	})

	lock, err := getLock(w.LockDir, w.TestID, w.ArtifactsDir, w.IgnoreLock, w.WaitLock, w.Interrupt, func(busyErr error) {
		w.Log.WithError(busyErr).Warn("waiting for lock")
	})
	if err != nil {
		return err
	}
	cleanups.add("release lock", func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			w.Log.WithError(releaseErr).Warn("failed to release lock")
		}
	})

	w.Plugins.Bind(w)
	if err := w.Plugins.Configure(); err != nil {
		return fmt.Errorf("configure plugins: %w", err)
	}
	cleanups.add("plugins cleanup", func() {
		if cleanupErr := w.Plugins.Cleanup(); cleanupErr != nil {
			w.Log.WithError(cleanupErr).Warn("plugin cleanup failed")
		}
	})

	if err := w.Plugins.PrepareTest(); err != nil {
		return fmt.Errorf("prepare test: %w", err)
	}

	if err := applyAmmoValidation(w.AmmoValidationPolicy, w.ValidateAmmo, w.Log); err != nil {
		return err
	}

	if err := w.waitForCommandToStartShooting(); err != nil {
		return err
	}

	w.setStatus(TestRunning)
	if err := w.Plugins.StartTest(); err != nil {
		return fmt.Errorf("start test: %w", err)
	}

	retcode := w.Plugins.WaitForFinish()
	w.setRetcode(retcode)

	w.setStatus(TestPostProcess)
	finalRetcode := w.Plugins.PostProcess(retcode)
	w.setRetcode(finalRetcode)
	return nil
}

// waitForCommandToStartShooting blocks in TestWaitingForCommand until
// RunShootingEvent fires or the worker is cancelled (spec.md §4.8 step 4).
func (w *TankWorker) waitForCommandToStartShooting() error {
	if w.RunShootingEvent == nil || w.RunShootingEvent.IsSet() {
		return nil
	}
	w.setStatus(TestWaitingForCommand)
	ticker := time.NewTicker(interrupt.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.RunShootingEvent.Chan():
			return nil
		case <-ticker.C:
			if w.Interrupt.IsSet() {
				return ErrCancelled
			}
		}
	}
}
