package domain

import "time"

// ProcessStatus is the terminal (or in-progress) disposition of a comment.
type ProcessStatus string

const (
	StatusDetected       ProcessStatus = "detected"
	StatusReplyGenerated ProcessStatus = "reply_generated"
	StatusReplyPosted    ProcessStatus = "reply_posted"
	StatusFailed         ProcessStatus = "failed"
	StatusSkipped        ProcessStatus = "skipped"
)

// ProcessedRecord tracks a single handled comment. One record per comment
// per account; inserts are idempotent so overlapping polls never double-post.
type ProcessedRecord struct {
	CommentID   string        `db:"comment_id"   json:"comment_id"`
	PostID      string        `db:"post_id"      json:"post_id"`
	AccountID   string        `db:"account_id"   json:"account_id"`
	Status      ProcessStatus `db:"status"       json:"status"`
	ReplyText   string        `db:"reply_text"   json:"reply_text,omitempty"`
	Error       string        `db:"error_msg"    json:"error,omitempty"`
	ProcessedAt time.Time     `db:"processed_at" json:"processed_at"`
}
