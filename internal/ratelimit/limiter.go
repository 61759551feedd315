// Package ratelimit tracks a sliding request budget against an external
// quota. The window is a fixed counter that resets wholesale when it
// expires; O(1) and sufficient for quotas on the order of tens to
// hundreds of requests per hour.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/metrics"
	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// Limiter enforces limit requests per window. Safe for concurrent use,
// so one limiter may be shared across engines that share an upstream
// quota. It never performs calls itself; callers must acquire before
// every network call that counts against the quota.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
}

// New creates a limiter allowing limit requests per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the time source for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// TryAcquire consumes one unit of budget if available.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindow()
	if l.count >= l.limit {
		metrics.RateLimiterRejections.Inc()
		return false
	}
	l.count++
	return true
}

// AcquireOrFail consumes budget or returns a rate-limit classified error
// carrying the remaining wait until the window resets.
func (l *Limiter) AcquireOrFail() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindow()
	if l.count < l.limit {
		l.count++
		return nil
	}

	metrics.RateLimiterRejections.Inc()
	remaining := l.window - l.now().Sub(l.windowStart)
	if remaining < 0 {
		remaining = 0
	}
	return &recovery.ClassifiedError{
		Kind:       recovery.KindRateLimit,
		Message:    fmt.Sprintf("request budget exhausted (%d/%s), retry after %s", l.limit, l.window, remaining.Round(time.Second)),
		Retryable:  true,
		RetryAfter: remaining,
		RaisedAt:   l.now(),
	}
}

// Remaining reports the unused budget in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindow()
	return l.limit - l.count
}

// rollWindow resets the counter the instant the window has elapsed.
// Caller must hold l.mu.
func (l *Limiter) rollWindow() {
	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.count = 0
		l.windowStart = now
	}
}
