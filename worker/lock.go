package worker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/nnugumanov/yandex-tank/interrupt"
)

// lockFileName is the advisory lock's filename within the configured lock
// directory (spec.md §6 "Lock file").
const lockFileName = "lunapark.lock"

// lockRetryPeriod is how long getLock sleeps between acquisition attempts
// when WaitLock is set (spec.md §4.8 step 1).
const lockRetryPeriod = 5 * time.Second

// Lock is the filesystem-level advisory lock that allows one run at a time
// per lock directory: every run uses the same lockFileName there, whatever
// its artifacts directory. Backed by gofrs/flock, the ecosystem's standard
// cross-platform advisory file lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// acquireLock takes the lock file under lockDir. If ignoreLock is set, an
// already-held lock is not an error: the new run proceeds, trusting the
// operator's override. The lock's contents record testID and artifactsDir
// so a human inspecting the file can see who holds it.
func acquireLock(lockDir, testID, artifactsDir string, ignoreLock bool) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(lockDir, lockFileName)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if !ignoreLock {
			return nil, fmt.Errorf("%w: %s held by another run", ErrLockBusy, path)
		}
	}
	if err := writeLockContents(path, testID, artifactsDir); err != nil {
		_ = fl.Unlock()
		return nil, err
	}
	return &Lock{fl: fl, path: path}, nil
}

func writeLockContents(path, testID, artifactsDir string) error {
	contents := fmt.Sprintf("test_id: %s\nartifacts_dir: %s\n", testID, artifactsDir)
	return os.WriteFile(path, []byte(contents), 0o644)
}

// Release unlocks and removes the lock file. Safe to call once.
func (l *Lock) Release() error {
	defer os.Remove(l.path)
	return l.fl.Unlock()
}

// getLock loops acquiring the lock, retrying every lockRetryPeriod when
// WaitLock is set, until it succeeds or the interrupt flag is tripped
// (spec.md §4.8 step 1, original_source TankWorker.get_lock).
func getLock(lockDir, testID, artifactsDir string, ignoreLock, waitLock bool, flag *interrupt.Flag, onBusy func(error)) (*Lock, error) {
	for {
		if flag != nil && flag.IsSet() {
			return nil, ErrCancelled
		}
		lock, err := acquireLock(lockDir, testID, artifactsDir, ignoreLock)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockBusy) {
			return nil, err
		}
		if onBusy != nil {
			onBusy(err)
		}
		if !waitLock {
			return nil, fmt.Errorf("lock file present, cannot continue: %w", err)
		}
		if !interrupt.Sleep(lockRetryPeriod, flag) {
			return nil, ErrCancelled
		}
	}
}
