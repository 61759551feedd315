// Package engine runs the automation workflow: a recurring, fault-tolerant
// detect -> generate -> publish loop per monitored account, with durable
// run state so an interrupted run resumes where it left off.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/dedup"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage"
	"github.com/Amaayu/Social-media-automaton/internal/ratelimit"
	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// State is the engine lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running" // idle, waiting for the next tick
	StateCycling  State = "cycling" // one poll cycle in flight
)

// Config holds engine configuration and injected collaborators. One engine
// owns exactly one monitored account; independent accounts run independent
// engines with no shared mutable state except an optionally shared Limiter.
type Config struct {
	AccountID    string
	SelfAuthorID string // comments by this author are never replied to
	Tone         string

	PollInterval        time.Duration
	PostFetchLimit      int
	MaxCommentsPerCheck int

	Source    CommentSource
	Generator ReplyGenerator
	Publisher ReplyPublisher
	Recorder  ActivityRecorder

	RunStates storage.RunStateRepository
	Dedup     *dedup.Tracker
	Limiter   *ratelimit.Limiter
	Policy    *recovery.Policy

	Log *slog.Logger
}

// Engine is the workflow state machine. All external-call failures are
// caught, classified, and converted into state mutations or an engine
// stop; nothing escapes a scheduled cycle.
type Engine struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	state    State
	runState domain.RunState
	stopCh   chan struct{}
	loopDone chan struct{}

	// isProcessing guards against overlapping cycles: a tick that fires
	// while a cycle is still running is skipped, not queued.
	isProcessing atomic.Bool

	now func() time.Time
}

// New creates a stopped engine. Call Restore or Start to begin.
func New(cfg Config) (*Engine, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("engine: account ID is required")
	}
	if cfg.Source == nil || cfg.Generator == nil || cfg.Publisher == nil {
		return nil, fmt.Errorf("engine: source, generator and publisher are required")
	}
	if cfg.RunStates == nil || cfg.Dedup == nil || cfg.Limiter == nil {
		return nil, fmt.Errorf("engine: run state repository, dedup tracker and limiter are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.PostFetchLimit <= 0 {
		cfg.PostFetchLimit = 10
	}
	if cfg.MaxCommentsPerCheck <= 0 {
		cfg.MaxCommentsPerCheck = 10
	}
	if cfg.Policy == nil {
		cfg.Policy = recovery.NewPolicy(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	return &Engine{
		cfg:   cfg,
		log:   cfg.Log.With("account", cfg.AccountID),
		state: StateStopped,
		runState: domain.RunState{
			AccountID: cfg.AccountID,
		},
		now: time.Now,
	}, nil
}

// Restore loads persisted run state and, when the loop was active before
// shutdown, starts the engine automatically so a process-manager restart
// resumes automation transparently. A load failure forces the state
// inactive and requires a manual start; the engine never loop-retries a
// broken startup.
func (e *Engine) Restore(ctx context.Context) error {
	state, err := e.cfg.RunStates.Load(ctx, e.cfg.AccountID)
	if err != nil {
		e.log.Error("failed to load run state, forcing inactive", "error", err)
		e.mu.Lock()
		e.runState.IsActive = false
		forced := e.runState
		e.mu.Unlock()
		if saveErr := e.cfg.RunStates.Save(ctx, &forced); saveErr != nil {
			e.log.Error("failed to persist forced-inactive state", "error", saveErr)
		}
		return fmt.Errorf("restore run state: %w", err)
	}

	if state != nil {
		e.mu.Lock()
		e.runState = *state
		wasActive := state.IsActive
		e.mu.Unlock()

		if wasActive {
			e.log.Info("run state was active, resuming automation")
			return e.Start(ctx)
		}
	}
	return nil
}

// Start activates the workflow loop. Idempotent: starting a running
// engine is a no-op. The first cycle runs immediately rather than after
// a full poll interval.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning || e.state == StateCycling || e.state == StateStarting {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStarting
	e.runState.IsActive = true
	snapshot := e.runState
	e.mu.Unlock()

	if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
		e.mu.Lock()
		e.state = StateStopped
		e.runState.IsActive = false
		e.mu.Unlock()
		return fmt.Errorf("persist run state on start: %w", err)
	}

	e.mu.Lock()
	if e.state != StateStarting {
		// A concurrent Stop won the race during startup. Leave its
		// outcome in place and re-persist it, since our own save above
		// may have landed after the stop's.
		snapshot := e.runState
		e.mu.Unlock()
		if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
			e.log.Error("failed to re-persist run state after aborted start", "error", err)
		}
		return nil
	}
	e.state = StateRunning
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	stopCh, loopDone := e.stopCh, e.loopDone
	e.mu.Unlock()

	e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
		AccountID: e.cfg.AccountID,
		Type:      domain.ActivityStarted,
		Message:   "automation started",
	})
	e.log.Info("engine started", "poll_interval", e.cfg.PollInterval)

	go e.loop(ctx, stopCh, loopDone)
	return nil
}

// Stop deactivates the loop cooperatively: the timer is disarmed, an
// in-flight cycle finishes naturally, and only then is the inactive state
// persisted. A reply is never left half-posted.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.closeStopLocked()
	loopDone := e.loopDone
	e.mu.Unlock()

	if loopDone != nil {
		<-loopDone
	}

	e.mu.Lock()
	e.state = StateStopped
	e.runState.IsActive = false
	snapshot := e.runState
	e.mu.Unlock()

	if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
		return fmt.Errorf("persist run state on stop: %w", err)
	}

	e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
		AccountID: e.cfg.AccountID,
		Type:      domain.ActivityStopped,
		Message:   "automation stopped",
	})
	e.log.Info("engine stopped")
	return nil
}

// Shutdown halts the loop for process exit without deactivating the
// account: isActive stays true in storage, so a restart resumes
// automation via Restore. Stop is the user-facing deactivation.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.closeStopLocked()
	loopDone := e.loopDone
	e.mu.Unlock()

	if loopDone != nil {
		<-loopDone
	}

	e.mu.Lock()
	e.state = StateStopped
	snapshot := e.runState
	e.mu.Unlock()

	if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
		return fmt.Errorf("persist run state on shutdown: %w", err)
	}
	e.log.Info("engine suspended for shutdown")
	return nil
}

// closeStopLocked signals the loop to exit, closing stopCh at most once
// no matter how many stop paths race. Caller must hold e.mu.
func (e *Engine) closeStopLocked() {
	if e.stopCh == nil {
		return
	}
	select {
	case <-e.stopCh:
		// Another stop path already signaled.
	default:
		close(e.stopCh)
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a copy of the durable run state.
func (e *Engine) Snapshot() domain.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runState
}

// AccountID returns the monitored account this engine owns.
func (e *Engine) AccountID() string {
	return e.cfg.AccountID
}

// loop drives the poll timer. It exits on Stop, context cancellation, or
// an engine-stopping authentication failure inside a cycle.
func (e *Engine) loop(ctx context.Context, stopCh chan struct{}, done chan struct{}) {
	defer close(done)

	// First check runs immediately, not a full interval from now.
	if stop := e.runCycle(ctx); stop {
		return
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if e.isProcessing.Load() {
				// Previous cycle still running; skip this tick entirely.
				e.log.Debug("cycle still in flight, skipping tick")
				continue
			}
			if stop := e.runCycle(ctx); stop {
				return
			}
		}
	}
}

// stopForAuth disables automation after a non-recoverable authentication
// failure. This is the only path that turns automation off without
// explicit user action, and it is recorded as a distinguishable event.
func (e *Engine) stopForAuth(ctx context.Context, cause *recovery.ClassifiedError) {
	e.mu.Lock()
	e.state = StateStopped
	e.runState.IsActive = false
	snapshot := e.runState
	e.closeStopLocked()
	e.mu.Unlock()

	if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
		e.log.Error("failed to persist auth-stop state", "error", err)
	}

	e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
		AccountID: e.cfg.AccountID,
		Type:      domain.ActivityAuthStop,
		Message:   "stopped due to authentication failure",
		Details:   map[string]any{"error": cause.Message},
	})
	e.log.Error("stopped due to authentication failure", "error", cause.Message)
}
