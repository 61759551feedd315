package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := New(limit, window)
	l.SetClock(clock.Now)
	return l, clock
}

func TestTryAcquire_Budget(t *testing.T) {
	l, clock := newTestLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		if !l.TryAcquire() {
			t.Fatalf("acquire %d rejected within budget", i+1)
		}
	}
	if l.TryAcquire() {
		t.Fatal("acquire beyond budget succeeded")
	}

	clock.Advance(time.Second)
	if !l.TryAcquire() {
		t.Fatal("acquire rejected after window reset")
	}
}

func TestTryAcquire_PartialWindowStillCounts(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.TryAcquire()
	l.TryAcquire()
	clock.Advance(30 * time.Second)
	if l.TryAcquire() {
		t.Fatal("budget replenished before window elapsed")
	}
}

func TestAcquireOrFail_ReturnsClassifiedRateLimit(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	if err := l.AcquireOrFail(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	clock.Advance(15 * time.Second)
	err := l.AcquireOrFail()
	var ce *recovery.ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("AcquireOrFail = %v, want ClassifiedError", err)
	}
	if ce.Kind != recovery.KindRateLimit {
		t.Errorf("kind = %s, want %s", ce.Kind, recovery.KindRateLimit)
	}
	if !ce.Retryable {
		t.Error("rate-limit rejection must be retryable")
	}
	if ce.RetryAfter != 45*time.Second {
		t.Errorf("RetryAfter = %v, want 45s remaining in window", ce.RetryAfter)
	}
}

func TestRemaining(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)

	if got := l.Remaining(); got != 5 {
		t.Errorf("Remaining = %d, want 5", got)
	}
	l.TryAcquire()
	l.TryAcquire()
	if got := l.Remaining(); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}

	clock.Advance(time.Second)
	if got := l.Remaining(); got != 5 {
		t.Errorf("Remaining after reset = %d, want 5", got)
	}
}
