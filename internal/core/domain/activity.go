package domain

import "time"

// ActivityType labels an entry in the activity log.
type ActivityType string

const (
	ActivityStarted       ActivityType = "started"
	ActivityStopped       ActivityType = "stopped"
	ActivityAuthStop      ActivityType = "stopped_auth_failure"
	ActivityCycleComplete ActivityType = "cycle_complete"
	ActivityReplyPosted   ActivityType = "reply_posted"
	ActivityCommentFailed ActivityType = "comment_failed"
	ActivityRateLimited   ActivityType = "rate_limited"
)

// ActivityEvent is a fire-and-forget log entry describing engine activity.
// Recording failures never abort the workflow.
type ActivityEvent struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Type      ActivityType   `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
