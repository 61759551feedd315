package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// ActivityRepo implements storage.ActivityRepository using PostgreSQL.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new PostgreSQL activity log repository.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Add appends an activity event.
func (r *ActivityRepo) Add(ctx context.Context, event *domain.ActivityEvent) error {
	var details []byte
	if event.Details != nil {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO activity_log (id, account_id, type, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.AccountID,
		string(event.Type),
		event.Message,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to add activity event: %w", err)
	}
	return nil
}

// Recent returns the newest events for an account.
func (r *ActivityRepo) Recent(ctx context.Context, accountID string, limit int) ([]*domain.ActivityEvent, error) {
	query := `
		SELECT id, account_id, type, message, details, created_at
		FROM activity_log
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []struct {
		ID        string         `db:"id"`
		AccountID string         `db:"account_id"`
		Type      string         `db:"type"`
		Message   string         `db:"message"`
		Details   sql.NullString `db:"details"`
		CreatedAt time.Time      `db:"created_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}

	events := make([]*domain.ActivityEvent, 0, len(rows))
	for _, row := range rows {
		ev := &domain.ActivityEvent{
			ID:        row.ID,
			AccountID: row.AccountID,
			Type:      domain.ActivityType(row.Type),
			Message:   row.Message,
			CreatedAt: row.CreatedAt,
		}
		if row.Details.Valid && row.Details.String != "" {
			if err := json.Unmarshal([]byte(row.Details.String), &ev.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// DeleteOlderThan prunes events created before cutoff.
func (r *ActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity log: %w", err)
	}
	return res.RowsAffected()
}
