package drain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intSeq struct {
	values []int
	idx    int
}

func (s *intSeq) Next() (int, bool) {
	if s.idx >= len(s.values) {
		return 0, false
	}
	v := s.values[s.idx]
	s.idx++
	return v, true
}

func TestDrainPushesEveryElementInOrder(t *testing.T) {
	src := &intSeq{values: []int{1, 2, 3, 4}}
	q := NewQueue[int]()
	d := New[int](src, q)

	require.NoError(t, d.Start())
	assert.False(t, d.Join(time.Second))
	assert.True(t, d.Finished())

	got := q.DrainAll()
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestDrainStartTwiceErrors(t *testing.T) {
	src := &intSeq{values: nil}
	q := NewQueue[int]()
	d := New[int](src, q)

	require.NoError(t, d.Start())
	err := d.Start()
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestQueueDrainAllEmptiesQueue(t *testing.T) {
	q := NewQueue[string]()
	assert.Nil(t, q.DrainAll())
	q.Push("a")
	q.Push("b")
	assert.Equal(t, []string{"a", "b"}, q.DrainAll())
	assert.Nil(t, q.DrainAll())
}

// blockingSeq never ends on its own; used to test Join's timeout behavior.
type blockingSeq struct {
	unblock chan struct{}
}

func (s *blockingSeq) Next() (int, bool) {
	<-s.unblock
	return 0, false
}

func TestJoinTimesOutWhileWorkerStillAlive(t *testing.T) {
	src := &blockingSeq{unblock: make(chan struct{})}
	q := NewQueue[int]()
	d := New[int](src, q)
	require.NoError(t, d.Start())

	stillAlive := d.Join(10 * time.Millisecond)
	assert.True(t, stillAlive)
	assert.True(t, d.IsAlive())

	close(src.unblock)
	assert.False(t, d.Join(time.Second))
}
