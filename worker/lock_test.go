package worker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnugumanov/yandex-tank/interrupt"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquireLock(dir, "test-1", filepath.Join(dir, "artifacts"), false)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	lock2, err := acquireLock(dir, "test-2", filepath.Join(dir, "artifacts"), false)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestAcquireLockBusyWithoutIgnore(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquireLock(dir, "test-1", dir, false)
	require.NoError(t, err)
	defer lock.Release()

	_, err = acquireLock(dir, "test-2", dir, false)
	assert.ErrorIs(t, err, ErrLockBusy)
}

func TestGetLockFailsFastWithoutWaitLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquireLock(dir, "test-1", dir, false)
	require.NoError(t, err)
	defer lock.Release()

	_, err = getLock(dir, "test-2", dir, false, false, nil, nil)
	assert.Error(t, err)
}

func TestGetLockCancelledByInterrupt(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquireLock(dir, "test-1", dir, false)
	require.NoError(t, err)
	defer lock.Release()

	flag := interrupt.New()
	go func() {
		time.Sleep(5 * time.Millisecond)
		flag.Set()
	}()

	_, err = getLock(dir, "test-2", dir, false, true, flag, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}
