// Package activity records workflow events to the activity log.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage"
)

// Recorder writes activity events to the repository. It is fire-and-forget:
// a failed write is logged and swallowed, never surfaced to the workflow.
type Recorder struct {
	repo storage.ActivityRepository
	log  *slog.Logger
}

// NewRecorder creates a recorder over the activity repository.
func NewRecorder(repo storage.ActivityRepository, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, log: log}
}

// Record persists an event, filling in ID and timestamp when absent.
func (r *Recorder) Record(ctx context.Context, event domain.ActivityEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := r.repo.Add(ctx, &event); err != nil {
		r.log.Warn("failed to record activity event",
			"account", event.AccountID, "type", event.Type, "error", err)
	}
}
