// Package ratelimit builds limiters that cap calls per rolling window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is what callers that block for budget depend on.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Window admits at most calls events in any rolling window of length period.
// It keeps the admit times of the last calls events; a new event is admitted
// once the oldest of them is at least period old.
type Window struct {
	mu     sync.Mutex
	calls  int
	period time.Duration
	log    []time.Time // ring of admit times, oldest at next once full
	next   int
	now    func() time.Time
}

// NewWindow returns a limiter for calls events per period. A non-positive
// period disables limiting; calls below 1 is treated as 1.
func NewWindow(calls int, period time.Duration) *Window {
	if calls < 1 {
		calls = 1
	}
	return &Window{
		calls:  calls,
		period: period,
		log:    make([]time.Time, 0, calls),
		now:    time.Now,
	}
}

// Allow admits an event at now if the window has budget and reports whether
// it did.
func (w *Window) Allow(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reserve(now) == 0
}

// Wait blocks until an event is admitted or ctx is done.
func (w *Window) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.mu.Lock()
		delay := w.reserve(w.now())
		w.mu.Unlock()
		if delay == 0 {
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

// reserve records an admit at now and returns 0, or returns how long until
// the oldest admit leaves the window. Callers hold mu.
func (w *Window) reserve(now time.Time) time.Duration {
	if w.period <= 0 {
		return 0
	}
	if len(w.log) < w.calls {
		w.log = append(w.log, now)
		return 0
	}

	oldest := w.log[w.next]
	if wait := oldest.Add(w.period).Sub(now); wait > 0 {
		return wait
	}
	w.log[w.next] = now
	w.next = (w.next + 1) % w.calls
	return 0
}
