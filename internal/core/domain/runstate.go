package domain

import "time"

// Stats holds the monotonic workflow counters. They are never reset except
// by explicit operator action (reset-stats CLI).
type Stats struct {
	Detected  uint64 `db:"detected"  json:"detected"`
	Generated uint64 `db:"generated" json:"generated"`
	Published uint64 `db:"published" json:"published"`
	Errors    uint64 `db:"errors"    json:"errors"`
}

// RunState is the durable engine state, one row per monitored account.
// It is mutated only by that account's engine and persisted immediately
// after every mutation, so a crash loses at most the in-flight cycle.
type RunState struct {
	AccountID     string     `db:"account_id"      json:"account_id"`
	IsActive      bool       `db:"is_active"       json:"is_active"`
	LastCheckTime *time.Time `db:"last_check_time" json:"last_check_time,omitempty"`
	Stats         Stats      `db:"stats"           json:"stats"`
	UpdatedAt     time.Time  `db:"updated_at"      json:"updated_at"`
}
