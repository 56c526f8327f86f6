package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSlidingLogReserve(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSlidingLog(3, time.Minute)
	s.now = clock.Now

	for i := 0; i < 3; i++ {
		assert.Zero(t, s.reserve(), "start %d is inside the limit", i+1)
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 3, s.InWindow())

	// Starts at 0s, 10s, 20s; now is 30s. The oldest expires at 60s.
	assert.Equal(t, 30*time.Second, s.reserve())

	clock.Advance(30 * time.Second)
	assert.Zero(t, s.reserve(), "the oldest start has left the window")
	assert.Equal(t, 3, s.InWindow())

	// The window is rolling: 10s, 20s and 60s are still inside at 61s.
	clock.Advance(time.Second)
	assert.Equal(t, 9*time.Second, s.reserve())
}

func TestSlidingLogNeverExceedsLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSlidingLog(10, time.Minute)
	s.now = clock.Now

	var admitted []time.Time
	for i := 0; i < 600; i++ {
		if s.reserve() == 0 {
			admitted = append(admitted, clock.Now())
		}
		clock.Advance(time.Second)
	}

	for i := range admitted {
		n := 0
		for j := i; j < len(admitted) && admitted[j].Sub(admitted[i]) < time.Minute; j++ {
			n++
		}
		require.LessOrEqual(t, n, 10, "window starting at %s", admitted[i])
	}
	assert.Len(t, admitted, 100)
}

func TestSlidingLogWait(t *testing.T) {
	s := NewSlidingLog(1, 50*time.Millisecond)

	require.NoError(t, s.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, s.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.Canceled)
}

func TestSlidingLogUnlimited(t *testing.T) {
	s := NewSlidingLog(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.Zero(t, s.reserve())
	}
	assert.NoError(t, unlimited{}.Wait(context.Background()))
}
