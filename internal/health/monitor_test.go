package health

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/dedup"
	"github.com/Amaayu/Social-media-automaton/internal/engine"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/memory"
	"github.com/Amaayu/Social-media-automaton/internal/ratelimit"
)

type stubSource struct{}

func (stubSource) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	return nil, nil
}

func (stubSource) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	return nil, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, commentText, tone string) (string, error) {
	return "ok", nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, postID, commentID, text string) error {
	return nil
}

func newHealthEngine(t *testing.T, accountID string) *engine.Engine {
	t.Helper()
	store := memory.NewMemoryStorage()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng, err := engine.New(engine.Config{
		AccountID:    accountID,
		PollInterval: time.Hour,
		Source:       stubSource{},
		Generator:    stubGenerator{},
		Publisher:    stubPublisher{},
		RunStates:    memory.NewRunStateRepo(store),
		Dedup:        dedup.NewTracker(memory.NewProcessedRepo(store), nil, log),
		Limiter:      ratelimit.New(100, time.Minute),
		Log:          log,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func TestCheckHealth_StoppedAccount(t *testing.T) {
	eng := newHealthEngine(t, "acc1")
	mon := NewMonitor([]*engine.Engine{eng}, map[string]time.Duration{"acc1": time.Hour})

	report := mon.CheckHealth(context.Background())
	if len(report) != 1 {
		t.Fatalf("got %d accounts, want 1", len(report))
	}
	if report[0].Status != StatusStopped {
		t.Errorf("status = %s, want %s", report[0].Status, StatusStopped)
	}
	if report[0].EngineState != engine.StateStopped {
		t.Errorf("engine state = %s", report[0].EngineState)
	}
}

func TestCheckHealth_RunningAccount(t *testing.T) {
	eng := newHealthEngine(t, "acc1")
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop(ctx)

	// Wait for the first cycle to stamp lastCheckTime.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && eng.Snapshot().LastCheckTime == nil {
		time.Sleep(5 * time.Millisecond)
	}
	if eng.Snapshot().LastCheckTime == nil {
		t.Fatal("first cycle never completed")
	}

	mon := NewMonitor([]*engine.Engine{eng}, map[string]time.Duration{"acc1": time.Hour})
	report := mon.CheckHealth(ctx)
	if report[0].Status != StatusHealthy {
		t.Errorf("status = %s, want %s", report[0].Status, StatusHealthy)
	}

	// A poll interval far smaller than the age of the last check marks
	// the account degraded.
	stale := NewMonitor([]*engine.Engine{eng}, map[string]time.Duration{"acc1": time.Nanosecond})
	report = stale.CheckHealth(ctx)
	if report[0].Status != StatusDegraded {
		t.Errorf("status = %s, want %s", report[0].Status, StatusDegraded)
	}
}
