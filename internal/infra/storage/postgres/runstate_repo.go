package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// RunStateRepo implements storage.RunStateRepository using PostgreSQL.
type RunStateRepo struct {
	db *DB
}

// NewRunStateRepo creates a new PostgreSQL run state repository.
func NewRunStateRepo(db *DB) *RunStateRepo {
	return &RunStateRepo{db: db}
}

type runStateRow struct {
	AccountID     string       `db:"account_id"`
	IsActive      bool         `db:"is_active"`
	LastCheckTime sql.NullTime `db:"last_check_time"`
	Detected      int64        `db:"detected"`
	Generated     int64        `db:"generated"`
	Published     int64        `db:"published"`
	Errors        int64        `db:"errors"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// Load returns the run state for an account, or nil when none exists.
func (r *RunStateRepo) Load(ctx context.Context, accountID string) (*domain.RunState, error) {
	query := `
		SELECT account_id, is_active, last_check_time, detected, generated, published, errors, updated_at
		FROM run_state
		WHERE account_id = $1
	`

	var row runStateRow
	err := r.db.GetContext(ctx, &row, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}

	state := &domain.RunState{
		AccountID: row.AccountID,
		IsActive:  row.IsActive,
		Stats: domain.Stats{
			Detected:  uint64(row.Detected),
			Generated: uint64(row.Generated),
			Published: uint64(row.Published),
			Errors:    uint64(row.Errors),
		},
		UpdatedAt: row.UpdatedAt,
	}
	if row.LastCheckTime.Valid {
		t := row.LastCheckTime.Time
		state.LastCheckTime = &t
	}
	return state, nil
}

// Save upserts the full run state in one atomic statement.
func (r *RunStateRepo) Save(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO run_state (account_id, is_active, last_check_time, detected, generated, published, errors, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			is_active       = EXCLUDED.is_active,
			last_check_time = EXCLUDED.last_check_time,
			detected        = EXCLUDED.detected,
			generated       = EXCLUDED.generated,
			published       = EXCLUDED.published,
			errors          = EXCLUDED.errors,
			updated_at      = NOW()
	`

	var lastCheck sql.NullTime
	if state.LastCheckTime != nil {
		lastCheck = sql.NullTime{Time: *state.LastCheckTime, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		state.AccountID,
		state.IsActive,
		lastCheck,
		int64(state.Stats.Detected),
		int64(state.Stats.Generated),
		int64(state.Stats.Published),
		int64(state.Stats.Errors),
	)
	if err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}
