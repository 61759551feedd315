package storage

import (
	"context"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// RunStateRepository persists per-account engine state.
type RunStateRepository interface {
	// Load returns the run state for an account, or nil when none exists.
	Load(ctx context.Context, accountID string) (*domain.RunState, error)

	// Save writes the full run state atomically (upsert).
	Save(ctx context.Context, state *domain.RunState) error
}

// ProcessedRepository is the durable dedup set plus per-comment outcome.
type ProcessedRepository interface {
	// IsProcessed reports whether a comment was already handled.
	IsProcessed(ctx context.Context, accountID, commentID string) (bool, error)

	// Mark inserts a processed record. Duplicate inserts are no-ops,
	// never errors: overlapping polls may detect the same comment.
	Mark(ctx context.Context, record *domain.ProcessedRecord) error

	// Recent returns the newest records for an account.
	Recent(ctx context.Context, accountID string, limit int) ([]*domain.ProcessedRecord, error)

	// CountByStatus aggregates record counts per status.
	CountByStatus(ctx context.Context, accountID string) (map[domain.ProcessStatus]int, error)
}

// ActivityRepository stores the activity log.
type ActivityRepository interface {
	// Add appends an activity event.
	Add(ctx context.Context, event *domain.ActivityEvent) error

	// Recent returns the newest events for an account.
	Recent(ctx context.Context, accountID string, limit int) ([]*domain.ActivityEvent, error)

	// DeleteOlderThan prunes events created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
