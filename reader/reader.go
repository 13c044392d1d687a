// Package reader defines the Reader contract the pipeline pulls timestamped
// samples through (spec.md §4.1), and the two adapters that sit directly on
// top of it: Poller (DataPoller, §4.2) and Chopper (§4.3).
package reader

import (
	"errors"
	"io"
	"time"

	"github.com/nnugumanov/yandex-tank/interrupt"
)

// ErrEndOfStream is returned by Reader.ReadNext to signal that no further
// samples will ever arrive. It is an alias of io.EOF so callers can use the
// standard library's idioms (errors.Is(err, io.EOF)) interchangeably.
var ErrEndOfStream = io.EOF

// Reader pulls batches of T from a generator. Implementations must return
// samples within one batch in non-decreasing timestamp order, and must
// respect the cancellation flag passed to their constructor: once it is
// set, ReadNext must return ErrEndOfStream within bounded time.
type Reader[T any] interface {
	// ReadNext returns the next (possibly empty) batch, or ErrEndOfStream
	// (wrapped or bare) once the stream has ended.
	ReadNext() ([]T, error)
	// Close is idempotent and releases any I/O resources held by the
	// reader. After Close, ReadNext must return ErrEndOfStream promptly.
	Close() error
}

// BatchSource is a pull-based sequence whose elements are batches. It is
// the uniform iterator contract of Design Note "sequence-of-sequences
// pipeline": ok is false once the source is exhausted, whether by natural
// end of stream or by cancellation.
type BatchSource[T any] interface {
	Next() ([]T, bool)
}

// Sequence is a pull-based sequence of individual elements.
type Sequence[T any] interface {
	Next() (T, bool)
}

// DefaultPollPeriod is the poller's sleep-on-empty-batch interval (spec.md
// §4.2).
const DefaultPollPeriod = time.Second

// Poller wraps a Reader into a lazy, restartable-only-before-start
// BatchSource: pulling the next element reads one batch; if that batch is
// empty and the stream hasn't ended, the poller sleeps for Period before
// retrying, checking the shared interrupt flag between sleeps so
// cancellation is prompt (spec.md §4.2, §5).
type Poller struct {
	Period    time.Duration
	Interrupt *interrupt.Flag
}

// NewPoller builds a Poller with the given poll period and cancellation
// flag. A nil interrupt is treated as "never interrupted".
func NewPoller(period time.Duration, flag *interrupt.Flag) *Poller {
	if period <= 0 {
		period = DefaultPollPeriod
	}
	if flag == nil {
		flag = interrupt.New()
	}
	return &Poller{Period: period, Interrupt: flag}
}

// Poll adapts r into a BatchSource. The poller never drops samples and
// preserves intra-batch order; it only ever returns a non-empty batch or
// signals end of stream (ok == false) — callers never see empty batches.
func Poll[T any](p *Poller, r Reader[T]) BatchSource[T] {
	return &polledSource[T]{poller: p, reader: r}
}

type polledSource[T any] struct {
	poller *Poller
	reader Reader[T]
	ended  bool
}

func (s *polledSource[T]) Next() ([]T, bool) {
	if s.ended {
		return nil, false
	}
	for {
		if s.poller.Interrupt.IsSet() {
			s.ended = true
			return nil, false
		}
		batch, err := s.reader.ReadNext()
		if len(batch) > 0 {
			return batch, true
		}
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				s.ended = true
				return nil, false
			}
			// Any other error is treated as end-of-stream for this reader.
			// The error itself is not logged: the poller has no logger and
			// the caller only sees the sequence end.
			s.ended = true
			return nil, false
		}
		if !interrupt.Sleep(s.poller.Period, s.poller.Interrupt) {
			s.ended = true
			return nil, false
		}
	}
}

// Chopper flattens a BatchSource into a flat Sequence, preserving order,
// buffering at most one batch at a time (spec.md §4.3).
type Chopper[T any] struct {
	src     BatchSource[T]
	pending []T
}

// NewChopper wraps src.
func NewChopper[T any](src BatchSource[T]) *Chopper[T] {
	return &Chopper[T]{src: src}
}

// Next returns the next element, pulling a fresh batch from src when the
// current one is exhausted.
func (c *Chopper[T]) Next() (T, bool) {
	for len(c.pending) == 0 {
		batch, ok := c.src.Next()
		if !ok {
			var zero T
			return zero, false
		}
		c.pending = batch
	}
	next := c.pending[0]
	c.pending = c.pending[1:]
	return next, true
}
