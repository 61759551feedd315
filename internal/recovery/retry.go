package recovery

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Action is the retry decision for a classified failure.
type Action int

const (
	// ActionStop aborts the operation and the engine; operator action needed.
	ActionStop Action = iota
	// ActionWaitThenRetry waits out a rate-limit window, not attempt-limited.
	ActionWaitThenRetry
	// ActionRetryWithBackoff retries after an exponential jittered delay.
	ActionRetryWithBackoff
	// ActionSkip gives up on this item only; the caller moves on.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionWaitThenRetry:
		return "wait_then_retry"
	case ActionRetryWithBackoff:
		return "retry_with_backoff"
	case ActionSkip:
		return "skip"
	}
	return "unknown"
}

// SkipError marks a per-item terminal failure. The caller records the item
// as failed/skipped and continues with the rest of the batch.
type SkipError struct {
	Cause *ClassifiedError
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped: %v", e.Cause)
}

func (e *SkipError) Unwrap() error { return e.Cause }

// Policy decides retry behavior for classified failures and executes
// operations under that behavior.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // symmetric fraction, 0.2 = ±20%

	classifier *Classifier
	sleep      func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy returns a policy with the stock defaults: 3 attempts,
// 1s base, 60s cap, ±20% jitter.
func NewPolicy(classifier *Classifier) *Policy {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      0.2,
		classifier:  classifier,
		sleep:       sleepCtx,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed makes backoff jitter reproducible. Tests use this.
func (p *Policy) Seed(seed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng = rand.New(rand.NewSource(seed))
}

// SetSleeper overrides the backoff sleep, letting tests run without
// real delays.
func (p *Policy) SetSleeper(fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}

// NextAction decides what to do after attempt (1-based) failed with ce.
func (p *Policy) NextAction(ce *ClassifiedError, attempt int) Action {
	switch ce.Kind {
	case KindAuthentication:
		return ActionStop
	case KindRateLimit:
		// Waiting out a quota window is not attempt-limited.
		return ActionWaitThenRetry
	case KindValidation:
		return ActionSkip
	default: // Network, API
		if attempt < p.MaxAttempts {
			return ActionRetryWithBackoff
		}
		return ActionSkip
	}
}

// Delay computes the backoff for the given attempt (1-based):
// min(base * 2^(attempt-1), cap) with symmetric jitter.
func (p *Policy) Delay(attempt int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return BackoffDelay(attempt, p.BaseDelay, p.MaxDelay, p.Jitter, p.rng)
}

// BackoffDelay is the pure backoff function: fully determined by its
// arguments and the rand source.
func BackoffDelay(attempt int, base, cap time.Duration, jitter float64, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(cap) {
		delay = float64(cap)
	}
	if jitter > 0 {
		// rand in [-jitter, +jitter]; the cap bounds the final delay,
		// so jitter at the cap only ever shortens it.
		delay *= 1 + (rng.Float64()*2-1)*jitter
		if delay > float64(cap) {
			delay = float64(cap)
		}
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Execute runs op, classifying each failure and applying the policy:
// Stop propagates the classified error immediately, Skip returns a
// SkipError, rate limits wait out their window without consuming
// attempts, and Network/API failures back off up to MaxAttempts before
// degrading to Skip.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 1
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		ce := p.classifier.Classify(err)
		switch p.NextAction(ce, attempt) {
		case ActionStop:
			return ce
		case ActionSkip:
			return &SkipError{Cause: ce}
		case ActionWaitThenRetry:
			wait := ce.RetryAfter
			if wait <= 0 {
				wait = DefaultRetryAfter
			}
			if err := p.sleep(ctx, wait); err != nil {
				return &SkipError{Cause: ce}
			}
		case ActionRetryWithBackoff:
			if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
				return &SkipError{Cause: ce}
			}
			attempt++
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
