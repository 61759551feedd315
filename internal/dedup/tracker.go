// Package dedup answers "has this comment already been handled?" against
// durable storage, with in-memory and optional Redis fast paths in front.
package dedup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage"
)

const defaultMaxRecent = 2048

// Cache is the optional shared fast path (Redis in production).
type Cache interface {
	IsProcessed(ctx context.Context, accountID, commentID string) (bool, error)
	MarkProcessed(ctx context.Context, accountID, commentID string) error
}

// Tracker provides durable set membership for processed comments. The
// in-memory and Redis layers only short-circuit positive answers; a miss
// always falls through to the repository, which is the source of truth.
type Tracker struct {
	repo  storage.ProcessedRepository
	cache Cache // may be nil
	log   *slog.Logger

	mu        sync.Mutex
	recent    map[string]struct{}
	order     []string
	maxRecent int
}

// NewTracker creates a tracker over the durable repository. cache may be nil.
func NewTracker(repo storage.ProcessedRepository, cache Cache, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		repo:      repo,
		cache:     cache,
		log:       log,
		recent:    make(map[string]struct{}),
		maxRecent: defaultMaxRecent,
	}
}

func key(accountID, commentID string) string {
	return accountID + ":" + commentID
}

// IsProcessed reports whether the comment was already handled.
func (t *Tracker) IsProcessed(ctx context.Context, accountID, commentID string) (bool, error) {
	k := key(accountID, commentID)

	t.mu.Lock()
	_, hit := t.recent[k]
	t.mu.Unlock()
	if hit {
		return true, nil
	}

	if t.cache != nil {
		cached, err := t.cache.IsProcessed(ctx, accountID, commentID)
		if err != nil {
			// Cache trouble degrades to the durable check.
			t.log.Debug("dedup cache check failed", "error", err)
		} else if cached {
			t.remember(k)
			return true, nil
		}
	}

	processed, err := t.repo.IsProcessed(ctx, accountID, commentID)
	if err != nil {
		return false, err
	}
	if processed {
		t.remember(k)
	}
	return processed, nil
}

// MarkProcessed durably records the comment's outcome, then populates the
// fast paths. The durable insert is idempotent: a duplicate is a no-op.
func (t *Tracker) MarkProcessed(ctx context.Context, record *domain.ProcessedRecord) error {
	if err := t.repo.Mark(ctx, record); err != nil {
		return err
	}

	t.remember(key(record.AccountID, record.CommentID))

	if t.cache != nil {
		if err := t.cache.MarkProcessed(ctx, record.AccountID, record.CommentID); err != nil {
			t.log.Debug("dedup cache mark failed", "error", err)
		}
	}
	return nil
}

// remember adds a key to the bounded in-memory set, evicting oldest first.
func (t *Tracker) remember(k string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.recent[k]; ok {
		return
	}
	t.recent[k] = struct{}{}
	t.order = append(t.order, k)
	for len(t.order) > t.maxRecent {
		delete(t.recent, t.order[0])
		t.order = t.order[1:]
	}
}
