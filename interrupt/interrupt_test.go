package interrupt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlagSetIsSet(t *testing.T) {
	f := New()
	assert.False(t, f.IsSet())
	f.Set()
	assert.True(t, f.IsSet())
	f.Set() // idempotent
	assert.True(t, f.IsSet())
}

func TestSleepFullDuration(t *testing.T) {
	f := New()
	start := time.Now()
	ok := Sleep(30*time.Millisecond, f)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSleepInterruptedPromptly(t *testing.T) {
	f := New()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Set()
	}()
	start := time.Now()
	ok := Sleep(time.Hour, f)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepNilFlag(t *testing.T) {
	ok := Sleep(5*time.Millisecond, nil)
	assert.True(t, ok)
}
