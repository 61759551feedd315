package engine

import (
	"context"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
)

// CommentSource provides the posts and comments of the monitored account.
// Implementations must surface failures as classifiable errors, never
// swallow them.
type CommentSource interface {
	ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
}

// ReplyGenerator produces reply text for a comment. Implementations must
// bound the call with a timeout and raise on empty or invalid
// configuration rather than return empty strings.
type ReplyGenerator interface {
	Generate(ctx context.Context, commentText, tone string) (string, error)
}

// ReplyPublisher posts a reply under a comment.
type ReplyPublisher interface {
	Publish(ctx context.Context, postID, commentID, text string) error
}

// ActivityRecorder is a fire-and-forget event sink. Implementations must
// never propagate their own failures to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, event domain.ActivityEvent)
}

// nopRecorder is used when no recorder is configured.
type nopRecorder struct{}

func (nopRecorder) Record(context.Context, domain.ActivityEvent) {}
