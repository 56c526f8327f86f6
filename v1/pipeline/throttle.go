package pipeline

import (
	"context"
	"sync"
	"time"
)

// Throttle admits attempt starts. Wait blocks until the caller may start, or ctx is
// done.
type Throttle interface {
	Wait(ctx context.Context) error
}

// SlidingLog admits at most Limit starts in any rolling Window. It keeps the start
// times of the current window, so the bound holds for every window, not only for
// aligned buckets.
type SlidingLog struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	starts []time.Time
}

var _ Throttle = (*SlidingLog)(nil)

// NewSlidingLog returns a throttle of limit starts per window. A non-positive limit
// admits everything.
func NewSlidingLog(limit int, window time.Duration) *SlidingLog {
	return &SlidingLog{limit: limit, window: window, now: time.Now}
}

func (s *SlidingLog) Wait(ctx context.Context) error {
	for {
		delay := s.reserve()
		if delay <= 0 {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve records a start and returns 0, or returns how long until the oldest start
// of the window expires.
func (s *SlidingLog) reserve() time.Duration {
	if s.limit <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.starts) && !s.starts[i].After(cutoff) {
		i++
	}
	s.starts = s.starts[i:]

	if len(s.starts) < s.limit {
		s.starts = append(s.starts, now)
		return 0
	}
	return s.starts[0].Sub(cutoff)
}

// InWindow returns the number of starts in the current window.
func (s *SlidingLog) InWindow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.window)
	n := 0
	for _, t := range s.starts {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }
