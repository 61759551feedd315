package postgres

import (
	"context"
	"fmt"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// ProcessedRepo implements storage.ProcessedRepository using PostgreSQL.
type ProcessedRepo struct {
	db *DB
}

// NewProcessedRepo creates a new PostgreSQL processed comment repository.
func NewProcessedRepo(db *DB) *ProcessedRepo {
	return &ProcessedRepo{db: db}
}

// IsProcessed reports whether a comment was already handled.
func (r *ProcessedRepo) IsProcessed(ctx context.Context, accountID, commentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_comments
			WHERE account_id = $1 AND comment_id = $2
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, accountID, commentID); err != nil {
		return false, fmt.Errorf("failed to check processed: %w", err)
	}
	return exists, nil
}

// Mark inserts a processed record. ON CONFLICT DO NOTHING keeps the insert
// idempotent: concurrent detection of the same comment must not error.
func (r *ProcessedRepo) Mark(ctx context.Context, record *domain.ProcessedRecord) error {
	query := `
		INSERT INTO processed_comments (account_id, comment_id, post_id, status, reply_text, error_msg, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (account_id, comment_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		record.AccountID,
		record.CommentID,
		record.PostID,
		string(record.Status),
		record.ReplyText,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to mark processed: %w", err)
	}
	return nil
}

// Recent returns the newest records for an account.
func (r *ProcessedRepo) Recent(ctx context.Context, accountID string, limit int) ([]*domain.ProcessedRecord, error) {
	query := `
		SELECT account_id, comment_id, post_id, status, reply_text, error_msg, processed_at
		FROM processed_comments
		WHERE account_id = $1
		ORDER BY processed_at DESC
		LIMIT $2
	`

	var rows []*domain.ProcessedRecord
	if err := r.db.SelectContext(ctx, &rows, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent processed: %w", err)
	}
	return rows, nil
}

// CountByStatus aggregates record counts per status.
func (r *ProcessedRepo) CountByStatus(ctx context.Context, accountID string) (map[domain.ProcessStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM processed_comments
		WHERE account_id = $1
		GROUP BY status
	`

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to count processed: %w", err)
	}

	counts := make(map[domain.ProcessStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.ProcessStatus(row.Status)] = row.Count
	}
	return counts, nil
}
