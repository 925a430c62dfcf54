package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter gates outbound API calls. Providers receive one at
// construction; sharing a limiter between providers that hit the same host is
// the caller's choice.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// IntervalLimiter allows one call per interval. It is an explicit dependency
// handed to each provider rather than process-global state.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait blocks until the next slot opens or the context is cancelled.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()

	now := time.Now()
	wait := l.next.Sub(now)

	if wait < 0 {
		wait = 0
	}

	l.next = now.Add(wait + l.interval)
	l.mu.Unlock()

	if wait == 0 {
		return nil
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

// NopLimiter never blocks. Used in tests and against local fixtures.
type NopLimiter struct{}

func (NopLimiter) Wait(context.Context) error { return nil }
