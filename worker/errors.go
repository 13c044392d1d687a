package worker

import "errors"

// Sentinel errors for the worker's error kinds (spec.md §7). ErrLockBusy,
// ErrConfigInvalid and ErrAmmoInvalid (under fail_on_error) come from the
// checks made before the test starts; ErrCancelled is returned when the
// interrupt flag ends a lock or run-signal wait. Each of them ends the run
// with exit code 1.
var (
	ErrLockBusy      = errors.New("lock busy")
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrAmmoInvalid   = errors.New("ammo validation failed")
	ErrCancelled     = errors.New("interrupted")
)
