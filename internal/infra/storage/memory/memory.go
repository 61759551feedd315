package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// MemoryStorage backs all repositories with mutex-protected maps. Used by
// tests and by databaseless runs; dedup state does not survive restarts
// in this mode.
type MemoryStorage struct {
	runStates map[string]*domain.RunState
	processed map[string]*domain.ProcessedRecord
	activity  []*domain.ActivityEvent
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runStates: make(map[string]*domain.RunState),
		processed: make(map[string]*domain.ProcessedRecord),
	}
}

func processedKey(accountID, commentID string) string {
	return accountID + ":" + commentID
}

// -----------------------------------------------------------------------------
// RunState Repository
// -----------------------------------------------------------------------------

type RunStateRepo struct {
	store *MemoryStorage
}

func NewRunStateRepo(store *MemoryStorage) *RunStateRepo {
	return &RunStateRepo{store: store}
}

func (r *RunStateRepo) Load(ctx context.Context, accountID string) (*domain.RunState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	state, ok := r.store.runStates[accountID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (r *RunStateRepo) Save(ctx context.Context, state *domain.RunState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *state
	copied.UpdatedAt = time.Now().UTC()
	r.store.runStates[state.AccountID] = &copied
	return nil
}

// -----------------------------------------------------------------------------
// Processed Repository
// -----------------------------------------------------------------------------

type ProcessedRepo struct {
	store *MemoryStorage
}

func NewProcessedRepo(store *MemoryStorage) *ProcessedRepo {
	return &ProcessedRepo{store: store}
}

func (r *ProcessedRepo) IsProcessed(ctx context.Context, accountID, commentID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.processed[processedKey(accountID, commentID)]
	return ok, nil
}

func (r *ProcessedRepo) Mark(ctx context.Context, record *domain.ProcessedRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := processedKey(record.AccountID, record.CommentID)
	if _, ok := r.store.processed[key]; ok {
		// Idempotent: first terminal write wins.
		return nil
	}
	copied := *record
	if copied.ProcessedAt.IsZero() {
		copied.ProcessedAt = time.Now().UTC()
	}
	r.store.processed[key] = &copied
	return nil
}

func (r *ProcessedRepo) Recent(ctx context.Context, accountID string, limit int) ([]*domain.ProcessedRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var records []*domain.ProcessedRecord
	for _, rec := range r.store.processed {
		if rec.AccountID == accountID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *ProcessedRepo) CountByStatus(ctx context.Context, accountID string) (map[domain.ProcessStatus]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	counts := make(map[domain.ProcessStatus]int)
	for _, rec := range r.store.processed {
		if rec.AccountID == accountID {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

// -----------------------------------------------------------------------------
// Activity Repository
// -----------------------------------------------------------------------------

type ActivityRepo struct {
	store *MemoryStorage
}

func NewActivityRepo(store *MemoryStorage) *ActivityRepo {
	return &ActivityRepo{store: store}
}

func (r *ActivityRepo) Add(ctx context.Context, event *domain.ActivityEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *event
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	r.store.activity = append(r.store.activity, &copied)
	return nil
}

func (r *ActivityRepo) Recent(ctx context.Context, accountID string, limit int) ([]*domain.ActivityEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var events []*domain.ActivityEvent
	for i := len(r.store.activity) - 1; i >= 0; i-- {
		if r.store.activity[i].AccountID == accountID {
			events = append(events, r.store.activity[i])
			if limit > 0 && len(events) >= limit {
				break
			}
		}
	}
	return events, nil
}

func (r *ActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.activity[:0]
	var removed int64
	for _, ev := range r.store.activity {
		if ev.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	r.store.activity = kept
	return removed, nil
}
