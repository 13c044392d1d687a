package worker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/sirupsen/logrus"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnugumanov/yandex-tank/interrupt"
)

type fakePlugins struct {
	configureErr   error
	prepareErr     error
	startErr       error
	waitRetcode    int
	postRetcode    int
	cleanupCalled  bool
	configureCalls int
	info           WorkerInfo
}

func (f *fakePlugins) Bind(info WorkerInfo) { f.info = info }

func (f *fakePlugins) Configure() error {
	f.configureCalls++
	return f.configureErr
}
func (f *fakePlugins) PrepareTest() error { return f.prepareErr }
func (f *fakePlugins) Cleanup() error {
	f.cleanupCalled = true
	return nil
}
func (f *fakePlugins) StartTest() error       { return f.startErr }
func (f *fakePlugins) WaitForFinish() int     { return f.waitRetcode }
func (f *fakePlugins) PostProcess(rc int) int { return f.postRetcode }

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunHappyPathReachesFinished(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{waitRetcode: 0, postRetcode: 0}

	w := New("test-1", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()
	w.RunShootingEvent = AlreadySet()

	rc := w.Run()
	tassert.Equal(t, 0, rc)
	tassert.Equal(t, TestFinished, w.Status())
	tassert.Equal(t, 1, plugins.configureCalls)
	tassert.True(t, plugins.cleanupCalled)

	data, err := os.ReadFile(filepath.Join(dir, finishFileName))
	require.NoError(t, err)
	assert.Equal(t, true, len(data) > 0)
}

func TestRunConfigureErrorStillRunsCleanupAndSavesStatus(t *testing.T) {
	dir := t.TempDir()
	boom := errString("configure failed")
	plugins := &fakePlugins{configureErr: boom}

	w := New("test-2", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()

	rc := w.Run()
	tassert.Equal(t, 1, rc)
	tassert.Equal(t, TestFinished, w.Status())

	_, err := os.Stat(filepath.Join(dir, finishFileName))
	tassert.NoError(t, err)
}

func TestRunWaitsForRunShootingEvent(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}
	signal := NewRunSignal()

	w := New("test-3", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()
	w.RunShootingEvent = signal

	done := make(chan int, 1)
	go func() { done <- w.Run() }()

	deadline := time.Now().Add(time.Second)
	for w.Status() != TestWaitingForCommand && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	tassert.Equal(t, TestWaitingForCommand, w.Status())

	signal.Set()
	select {
	case rc := <-done:
		tassert.Equal(t, 0, rc)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after run signal was set")
	}
}

func TestStopCancelsWaitForRunSignal(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}

	w := New("test-4", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()
	w.RunShootingEvent = NewRunSignal()
	w.Interrupt = interrupt.New()

	done := make(chan int, 1)
	go func() { done <- w.Run() }()

	deadline := time.Now().Add(time.Second)
	for w.Status() != TestWaitingForCommand && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	w.Stop()
	select {
	case rc := <-done:
		tassert.Equal(t, 1, rc)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestAmmoValidationFailOnErrorAbortsRun(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}
	w := New("test-5", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()
	w.AmmoValidationPolicy = AmmoFailOnError
	w.ValidateAmmo = func() error { return errString("bad ammo") }

	rc := w.Run()
	tassert.Equal(t, 1, rc)
	status := w.GetStatus()
	tassert.Contains(t, status.TankMsg, "bad ammo")
}

type errString string

func (e errString) Error() string { return string(e) }

func TestBindGivesPluginsAWorkerInfoHandle(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}
	w := New("test-6", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()

	rc := w.Run()
	tassert.Equal(t, 0, rc)
	require.NotNil(t, plugins.info)
}

func TestReportedErrorsAppearInTankMsg(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}
	w := New("test-7", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()

	w.ReportError("disk nearly full")
	w.SetLunaparkInfo("12345", "https://lunapark.example/12345")
	w.SetAutostop(Autostop{RPS: 100, Reason: "time limit exceeded", Type: "time", RC: 21})

	rc := w.Run()
	tassert.Equal(t, 0, rc)

	status := w.GetStatus()
	tassert.Contains(t, status.TankMsg, "disk nearly full")
	tassert.Equal(t, "12345", status.LunaparkID)
	tassert.Equal(t, "https://lunapark.example/12345", status.LunaparkURL)
	require.NotNil(t, status.Autostop)
	tassert.Equal(t, 100, status.Autostop.RPS)
}

func TestRunAttachesAndDetachesLogFileHook(t *testing.T) {
	dir := t.TempDir()
	plugins := &fakePlugins{}
	w := New("test-8", dir, filepath.Join(dir, "locks"), plugins)
	w.Log = quietLog()

	rc := w.Run()
	tassert.Equal(t, 0, rc)

	_, err := os.Stat(filepath.Join(dir, "tank.log"))
	tassert.NoError(t, err)
}
