package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/config"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage"
)

// Pruner deletes old activity events based on the retention policy.
type Pruner struct {
	cfg  config.RetentionConfig
	repo storage.ActivityRepository
	log  *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(cfg config.RetentionConfig, repo storage.ActivityRepository, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{cfg: cfg, repo: repo, log: log}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.cfg.ActivityPeriod <= 0 {
		return // Retention disabled
	}

	interval := p.cfg.PruneInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.cfg.ActivityPeriod)

	removed, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune activity log", "error", err)
		return
	}
	if removed > 0 {
		p.log.Info("pruned activity log", "removed", removed, "cutoff", cutoff)
	}
}
