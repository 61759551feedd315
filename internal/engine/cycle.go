package engine

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/metrics"
	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// runCycle executes one detect -> generate -> publish pass. It returns
// true when the engine must stop entirely (authentication failure).
func (e *Engine) runCycle(ctx context.Context) bool {
	if !e.isProcessing.CompareAndSwap(false, true) {
		return false
	}
	defer e.isProcessing.Store(false)

	e.mu.Lock()
	e.state = StateCycling
	e.mu.Unlock()

	timer := prometheus.NewTimer(metrics.CycleDuration.WithLabelValues(e.cfg.AccountID))
	stop := e.cycle(ctx)
	timer.ObserveDuration()

	e.mu.Lock()
	if e.state == StateCycling {
		e.state = StateRunning
	}
	e.mu.Unlock()
	return stop
}

func (e *Engine) cycle(ctx context.Context) bool {
	cycleStart := e.now().UTC()
	e.log.Debug("cycle starting")

	// Step 1: fetch candidate comments, retry-wrapped. An authentication
	// failure here is the only condition that disables automation without
	// explicit user action.
	var comments []domain.Comment
	err := e.cfg.Policy.Execute(ctx, func(ctx context.Context) error {
		comments = comments[:0]
		posts, err := e.cfg.Source.ListRecentPosts(ctx, e.cfg.PostFetchLimit)
		if err != nil {
			return err
		}
		for _, post := range posts {
			cs, err := e.cfg.Source.ListComments(ctx, post.ID)
			if err != nil {
				return err
			}
			comments = append(comments, cs...)
		}
		return nil
	})
	if err != nil {
		e.bumpErrors(errorKind(err))
		var skip *recovery.SkipError
		if !errors.As(err, &skip) {
			var ce *recovery.ClassifiedError
			if errors.As(err, &ce) && ce.Kind == recovery.KindAuthentication {
				e.stopForAuth(ctx, ce)
				return true
			}
		}
		e.log.Warn("comment fetch failed, skipping cycle", "error", err)
		e.finishCycle(ctx, cycleStart, 0)
		return false
	}

	// Steps 2-3: dedup filtering and the self-reply guard, both local.
	// Source order is preserved; work per tick is bounded.
	var fresh []domain.Comment
	for _, c := range comments {
		if c.AuthorID == e.cfg.SelfAuthorID {
			continue
		}
		processed, err := e.cfg.Dedup.IsProcessed(ctx, e.cfg.AccountID, c.ID)
		if err != nil {
			e.log.Warn("dedup check failed, deferring comment", "comment", c.ID, "error", err)
			continue
		}
		if processed {
			continue
		}
		fresh = append(fresh, c)
		if len(fresh) >= e.cfg.MaxCommentsPerCheck {
			break
		}
	}

	if n := len(fresh); n > 0 {
		e.bumpStats(func(s *domain.Stats) { s.Detected += uint64(n) })
		metrics.CommentsDetected.WithLabelValues(e.cfg.AccountID).Add(float64(n))
		e.log.Info("new comments detected", "count", n)
	}

	// Step 4: generate and publish per comment. One comment's failure
	// never blocks the rest of the batch; only an authentication stop
	// aborts the remainder.
	for _, c := range fresh {
		if stopped := e.processComment(ctx, c); stopped {
			return true
		}
	}

	e.finishCycle(ctx, cycleStart, len(fresh))
	return false
}

// processComment runs generate-then-publish for a single comment, each
// call behind the rate limiter and the retry policy.
func (e *Engine) processComment(ctx context.Context, c domain.Comment) bool {
	var reply string
	err := e.cfg.Policy.Execute(ctx, func(ctx context.Context) error {
		if err := e.cfg.Limiter.AcquireOrFail(); err != nil {
			return err
		}
		text, err := e.cfg.Generator.Generate(ctx, c.Text, e.cfg.Tone)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return e.recordFailure(ctx, c, "", err)
	}
	e.bumpStats(func(s *domain.Stats) { s.Generated++ })
	metrics.RepliesGenerated.WithLabelValues(e.cfg.AccountID).Inc()

	err = e.cfg.Policy.Execute(ctx, func(ctx context.Context) error {
		if err := e.cfg.Limiter.AcquireOrFail(); err != nil {
			return err
		}
		return e.cfg.Publisher.Publish(ctx, c.PostID, c.ID, reply)
	})
	if err != nil {
		return e.recordFailure(ctx, c, reply, err)
	}

	e.bumpStats(func(s *domain.Stats) { s.Published++ })
	metrics.RepliesPublished.WithLabelValues(e.cfg.AccountID).Inc()

	e.markProcessed(ctx, &domain.ProcessedRecord{
		AccountID: e.cfg.AccountID,
		CommentID: c.ID,
		PostID:    c.PostID,
		Status:    domain.StatusReplyPosted,
		ReplyText: reply,
	})
	e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
		AccountID: e.cfg.AccountID,
		Type:      domain.ActivityReplyPosted,
		Message:   "reply posted",
		Details:   map[string]any{"comment_id": c.ID, "post_id": c.PostID},
	})
	e.log.Info("reply posted", "comment", c.ID, "post", c.PostID)
	return false
}

// recordFailure converts a per-comment failure into a ProcessedRecord and
// counters. Returns true when the failure must stop the whole engine.
func (e *Engine) recordFailure(ctx context.Context, c domain.Comment, reply string, err error) bool {
	kind := errorKind(err)
	e.bumpErrors(kind)

	status := domain.StatusFailed
	if kind == recovery.KindValidation {
		status = domain.StatusSkipped
	}
	e.markProcessed(ctx, &domain.ProcessedRecord{
		AccountID: e.cfg.AccountID,
		CommentID: c.ID,
		PostID:    c.PostID,
		Status:    status,
		ReplyText: reply,
		Error:     err.Error(),
	})
	e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
		AccountID: e.cfg.AccountID,
		Type:      domain.ActivityCommentFailed,
		Message:   "comment processing failed",
		Details:   map[string]any{"comment_id": c.ID, "kind": string(kind), "error": err.Error()},
	})
	e.log.Warn("comment processing failed", "comment", c.ID, "kind", kind, "error", err)

	var skip *recovery.SkipError
	if errors.As(err, &skip) {
		return false
	}
	var ce *recovery.ClassifiedError
	if errors.As(err, &ce) && ce.Kind == recovery.KindAuthentication {
		e.stopForAuth(ctx, ce)
		return true
	}
	return false
}

// finishCycle records lastCheckTime and persists the run state. Persisting
// at cycle end, not start, makes a mid-cycle crash detectable by comparing
// lastCheckTime against real elapsed time.
func (e *Engine) finishCycle(ctx context.Context, cycleStart time.Time, processed int) {
	e.mu.Lock()
	e.runState.LastCheckTime = &cycleStart
	snapshot := e.runState
	e.mu.Unlock()

	if err := e.cfg.RunStates.Save(ctx, &snapshot); err != nil {
		e.log.Error("failed to persist run state after cycle", "error", err)
	}

	metrics.CyclesTotal.WithLabelValues(e.cfg.AccountID).Inc()
	if processed > 0 {
		e.cfg.Recorder.Record(ctx, domain.ActivityEvent{
			AccountID: e.cfg.AccountID,
			Type:      domain.ActivityCycleComplete,
			Message:   "cycle complete",
			Details: map[string]any{
				"processed": processed,
				"published": snapshot.Stats.Published,
				"errors":    snapshot.Stats.Errors,
			},
		})
	}
	e.log.Debug("cycle complete", "processed", processed)
}

func (e *Engine) bumpStats(mutate func(*domain.Stats)) {
	e.mu.Lock()
	mutate(&e.runState.Stats)
	e.mu.Unlock()
}

func (e *Engine) bumpErrors(kind recovery.Kind) {
	e.bumpStats(func(s *domain.Stats) { s.Errors++ })
	metrics.WorkflowErrors.WithLabelValues(e.cfg.AccountID, string(kind)).Inc()
}

func (e *Engine) markProcessed(ctx context.Context, record *domain.ProcessedRecord) {
	if err := e.cfg.Dedup.MarkProcessed(ctx, record); err != nil {
		e.log.Error("failed to mark comment processed", "comment", record.CommentID, "error", err)
	}
}

// errorKind extracts the classified kind from a policy error.
func errorKind(err error) recovery.Kind {
	var skip *recovery.SkipError
	if errors.As(err, &skip) {
		return skip.Cause.Kind
	}
	var ce *recovery.ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return recovery.KindAPI
}
