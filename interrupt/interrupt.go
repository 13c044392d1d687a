// Package interrupt provides the single process-wide cancellation signal
// that the pipeline's poller sleeps, lock retries and run-signal waits poll
// at a bounded interval. Drain joins do not consult it; they are bounded by
// their own timeout only.
package interrupt

import (
	"sync/atomic"
	"time"
)

// Flag is a cooperative, idempotent cancellation signal. It is the
// "interrupt flag" of spec.md §5: a single root that, once set, must cause
// every blocking loop to return within its own poll period.
type Flag struct {
	set atomic.Bool
}

// New returns a Flag in the not-set state.
func New() *Flag {
	return &Flag{}
}

// Set trips the flag. Safe to call more than once and from any goroutine.
func (f *Flag) Set() {
	f.set.Store(true)
}

// IsSet reports whether the flag has been tripped.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// PollInterval bounds how often a Sleep (or any other select-based wait)
// checks the flag, so every blocking wait in the system returns within
// PollInterval of cancellation regardless of the sleep's total duration
// (spec.md §5, §8 "Cancellation promptness").
const PollInterval = 10 * time.Millisecond

// Sleep blocks for up to d, waking early and returning false as soon as
// flag is set. A nil flag behaves as never-set. Returns true if the full
// duration elapsed uninterrupted.
func Sleep(d time.Duration, flag *Flag) bool {
	if flag == nil {
		time.Sleep(d)
		return true
	}
	elapsed := time.Duration(0)
	for elapsed < d {
		step := PollInterval
		if remaining := d - elapsed; remaining < step {
			step = remaining
		}
		time.Sleep(step)
		elapsed += step
		if flag.IsSet() {
			return false
		}
	}
	return true
}
