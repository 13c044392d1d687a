package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlignedTickFiresPeriodically(t *testing.T) {
	ticks := AlignedTick(50*time.Millisecond, 0, 4)

	count := 0
	deadline := time.After(500 * time.Millisecond)
loop:
	for count < 3 {
		select {
		case <-ticks:
			count++
		case <-deadline:
			break loop
		}
	}
	assert.GreaterOrEqual(t, count, 3)
}

func TestAlignedTickDefaultsSlack(t *testing.T) {
	ticks := AlignedTick(20*time.Millisecond, 0, 0)
	select {
	case <-ticks:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one tick")
	}
}
