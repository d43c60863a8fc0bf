package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between grants across all callers
// sharing one instance. Grants are FIFO by arrival; the critical section is a
// single clock compare-and-advance and never performs I/O.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest time the next grant may fire
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval between
// grants. An interval <= 0 disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		now:      time.Now,
	}
}

// NewRateLimiterWithClock creates a limiter with an injected clock for tests
func NewRateLimiterWithClock(interval time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		now:      now,
	}
}

// Wait blocks until the limiter grants a slot or ctx is cancelled.
// The slot is reserved before sleeping, so concurrent callers queue up
// without ever being granted slots closer together than the interval.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.interval <= 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	now := r.now()
	grant := r.next
	if grant.Before(now) {
		grant = now
	}
	r.next = grant.Add(r.interval)
	r.mu.Unlock()

	wait := grant.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the configured minimum interval
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
