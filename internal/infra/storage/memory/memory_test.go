package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

func TestRunStateRepo_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	repo := NewRunStateRepo(store)

	state, err := repo.Load(ctx, "acc1")
	if err != nil || state != nil {
		t.Fatalf("missing state: %v, %v, want nil, nil", state, err)
	}

	now := time.Now().UTC()
	in := &domain.RunState{
		AccountID:     "acc1",
		IsActive:      true,
		LastCheckTime: &now,
		Stats:         domain.Stats{Detected: 3, Published: 2, Errors: 1},
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := repo.Load(ctx, "acc1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !out.IsActive || out.Stats != in.Stats {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("Save must stamp UpdatedAt")
	}

	// Upsert: a second save overwrites.
	in.IsActive = false
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	out, _ = repo.Load(ctx, "acc1")
	if out.IsActive {
		t.Error("second save did not overwrite")
	}
}

func TestProcessedRepo_MarkIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewProcessedRepo(NewMemoryStorage())

	rec := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", Status: domain.StatusReplyPosted,
	}
	if err := repo.Mark(ctx, rec); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	dup := &domain.ProcessedRecord{
		AccountID: "acc1", CommentID: "c1", Status: domain.StatusFailed,
	}
	if err := repo.Mark(ctx, dup); err != nil {
		t.Fatalf("duplicate Mark: %v", err)
	}

	ok, err := repo.IsProcessed(ctx, "acc1", "c1")
	if err != nil || !ok {
		t.Fatalf("IsProcessed = %v, %v", ok, err)
	}

	counts, err := repo.CountByStatus(ctx, "acc1")
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.StatusReplyPosted] != 1 || counts[domain.StatusFailed] != 0 {
		t.Errorf("counts = %v, first write must win", counts)
	}
}

func TestProcessedRepo_RecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewProcessedRepo(NewMemoryStorage())

	base := time.Now().UTC()
	for i, id := range []string{"c1", "c2", "c3"} {
		repo.Mark(ctx, &domain.ProcessedRecord{
			AccountID:   "acc1",
			CommentID:   id,
			Status:      domain.StatusReplyPosted,
			ProcessedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	records, err := repo.Recent(ctx, "acc1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.CommentID
	}
	if diff := cmp.Diff([]string{"c3", "c2"}, ids); diff != "" {
		t.Errorf("recent order mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityRepo_RecentAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepo(NewMemoryStorage())

	old := time.Now().UTC().Add(-48 * time.Hour)
	repo.Add(ctx, &domain.ActivityEvent{ID: "e1", AccountID: "acc1", Type: domain.ActivityStarted, CreatedAt: old})
	repo.Add(ctx, &domain.ActivityEvent{ID: "e2", AccountID: "acc1", Type: domain.ActivityReplyPosted})
	repo.Add(ctx, &domain.ActivityEvent{ID: "e3", AccountID: "acc2", Type: domain.ActivityStarted})

	events, err := repo.Recent(ctx, "acc1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "e2" {
		t.Errorf("order = %s first, want newest first", events[0].ID)
	}

	removed, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	events, _ = repo.Recent(ctx, "acc1", 10)
	if len(events) != 1 || events[0].ID != "e2" {
		t.Errorf("events after prune = %v", events)
	}
}
