package dedup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type flakyCache struct {
	err    error
	marked map[string]bool
}

func (c *flakyCache) IsProcessed(ctx context.Context, accountID, commentID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.marked[accountID+":"+commentID], nil
}

func (c *flakyCache) MarkProcessed(ctx context.Context, accountID, commentID string) error {
	if c.err != nil {
		return c.err
	}
	if c.marked == nil {
		c.marked = make(map[string]bool)
	}
	c.marked[accountID+":"+commentID] = true
	return nil
}

func TestTracker_MarkThenCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	tracker := NewTracker(memory.NewProcessedRepo(store), nil, testLogger())

	processed, err := tracker.IsProcessed(ctx, "acc1", "c1")
	if err != nil || processed {
		t.Fatalf("fresh comment: processed=%v err=%v, want false, nil", processed, err)
	}

	record := &domain.ProcessedRecord{
		AccountID: "acc1",
		CommentID: "c1",
		PostID:    "p1",
		Status:    domain.StatusReplyPosted,
		ReplyText: "thanks!",
	}
	if err := tracker.MarkProcessed(ctx, record); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	processed, err = tracker.IsProcessed(ctx, "acc1", "c1")
	if err != nil || !processed {
		t.Fatalf("marked comment: processed=%v err=%v, want true, nil", processed, err)
	}
}

func TestTracker_MarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	repo := memory.NewProcessedRepo(store)
	tracker := NewTracker(repo, nil, testLogger())

	first := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", PostID: "p1",
		Status: domain.StatusReplyPosted, ReplyText: "hi",
	}
	second := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", PostID: "p1",
		Status: domain.StatusFailed, Error: "late duplicate",
	}
	if err := tracker.MarkProcessed(ctx, first); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := tracker.MarkProcessed(ctx, second); err != nil {
		t.Fatalf("duplicate mark: %v", err)
	}

	records, err := repo.Recent(ctx, "acc1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != domain.StatusReplyPosted {
		t.Errorf("status = %s, first write must win", records[0].Status)
	}
}

func TestTracker_KeysAreScopedPerAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	tracker := NewTracker(memory.NewProcessedRepo(store), nil, testLogger())

	record := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", Status: domain.StatusReplyPosted,
	}
	if err := tracker.MarkProcessed(ctx, record); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	processed, err := tracker.IsProcessed(ctx, "acc2", "c1")
	if err != nil || processed {
		t.Fatalf("other account: processed=%v err=%v, want false, nil", processed, err)
	}
}

func TestTracker_CacheFailureDegradesToRepo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	repo := memory.NewProcessedRepo(store)
	cache := &flakyCache{err: errors.New("redis down")}
	tracker := NewTracker(repo, cache, testLogger())

	record := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", Status: domain.StatusReplyPosted,
	}
	if err := tracker.MarkProcessed(ctx, record); err != nil {
		t.Fatalf("MarkProcessed with broken cache: %v", err)
	}

	processed, err := tracker.IsProcessed(ctx, "acc1", "c1")
	if err != nil || !processed {
		t.Fatalf("durable answer lost behind broken cache: processed=%v err=%v", processed, err)
	}
}

func TestTracker_CacheHitShortCircuits(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	cache := &flakyCache{marked: map[string]bool{"acc1:c1": true}}
	tracker := NewTracker(memory.NewProcessedRepo(store), cache, testLogger())

	// Comment only known to the cache, e.g. marked by a previous process.
	processed, err := tracker.IsProcessed(ctx, "acc1", "c1")
	if err != nil || !processed {
		t.Fatalf("cache-only hit: processed=%v err=%v, want true, nil", processed, err)
	}
}

func TestTracker_RecentSetEviction(t *testing.T) {
	store := memory.NewMemoryStorage()
	tracker := NewTracker(memory.NewProcessedRepo(store), nil, testLogger())
	tracker.maxRecent = 3

	for _, k := range []string{"a", "b", "c", "d"} {
		tracker.remember(k)
	}
	if len(tracker.recent) != 3 || len(tracker.order) != 3 {
		t.Fatalf("recent set size = %d/%d, want 3", len(tracker.recent), len(tracker.order))
	}
	if _, ok := tracker.recent["a"]; ok {
		t.Error("oldest key not evicted")
	}
	if _, ok := tracker.recent["d"]; !ok {
		t.Error("newest key missing")
	}
}
