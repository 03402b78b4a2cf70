package genimage

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow admits at most capacity acquisitions per rolling window,
// shared process-wide by every caller holding the same instance. Acquire
// blocks until a slot frees or the context is done.
type SlidingWindow struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	stamps   []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlidingWindow builds a limiter for capacity events per window.
// A capacity below one is treated as one.
func NewSlidingWindow(capacity int, window time.Duration) *SlidingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &SlidingWindow{
		capacity: capacity,
		window:   window,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Acquire blocks until the caller may proceed. It returns the context error
// if ctx is cancelled while waiting.
func (w *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.mu.Lock()
		now := w.now()
		w.prune(now)
		if len(w.stamps) < w.capacity {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		wait := w.stamps[0].Add(w.window).Sub(now)
		w.mu.Unlock()

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops timestamps that have left the window. Callers hold w.mu.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
