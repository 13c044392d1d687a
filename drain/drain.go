// Package drain runs a single producer sequence on a dedicated worker
// goroutine and pushes each produced element onto an unbounded handoff
// queue owned by the caller (spec.md §4.6), the Go-goroutine analogue of
// carbon-relay-ng/yandextank's thread-backed Drain.
package drain

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/nnugumanov/yandex-tank/reader"
)

// ErrAlreadyStarted is returned by Start if called more than once.
var ErrAlreadyStarted = errors.New("drain: already started")

// Drain pulls T from src on its own goroutine and pushes each one onto
// Queue.
type Drain[T any] struct {
	src   reader.Sequence[T]
	queue *Queue[T]

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	finished atomic.Bool
}

// New builds a Drain over src, pushing into queue. The worker is not
// started until Start is called.
func New[T any](src reader.Sequence[T], queue *Queue[T]) *Drain[T] {
	return &Drain[T]{
		src:   src,
		queue: queue,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. Idempotent-before-started; returns
// ErrAlreadyStarted if called a second time.
func (d *Drain[T]) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go d.run()
	return nil
}

func (d *Drain[T]) run() {
	defer close(d.done)
	for {
		v, ok := d.src.Next()
		if !ok {
			d.finished.Store(true)
			return
		}
		select {
		case <-d.stop:
			return
		default:
			d.queue.Push(v)
		}
	}
}

// Join waits up to timeout for the worker to finish naturally. It returns
// true if the worker is still alive (i.e. the wait timed out).
func (d *Drain[T]) Join(timeout time.Duration) (stillAlive bool) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	select {
	case <-d.done:
		return false
	case <-time.After(timeout):
		return true
	}
}

// IsAlive reports whether the worker goroutine has not yet exited.
func (d *Drain[T]) IsAlive() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// Close signals the worker to stop pushing further elements and releases
// resources. Idempotent.
func (d *Drain[T]) Close() error {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	return nil
}

// Finished reports whether the worker has observed end-of-stream on its
// producer and pushed every element it read before that point.
func (d *Drain[T]) Finished() bool {
	return d.finished.Load()
}
