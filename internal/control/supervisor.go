// Package control wires storage, clients and engines together and manages
// their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/activity"
	"github.com/Amaayu/Social-media-automaton/internal/core/config"
	"github.com/Amaayu/Social-media-automaton/internal/core/worker"
	"github.com/Amaayu/Social-media-automaton/internal/dedup"
	"github.com/Amaayu/Social-media-automaton/internal/engine"
	"github.com/Amaayu/Social-media-automaton/internal/genai"
	"github.com/Amaayu/Social-media-automaton/internal/health"
	redisclient "github.com/Amaayu/Social-media-automaton/internal/infra/redis"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/memory"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/postgres"
	"github.com/Amaayu/Social-media-automaton/internal/platform/rest"
	"github.com/Amaayu/Social-media-automaton/internal/ratelimit"
	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// Supervisor owns one engine per configured account plus the shared
// infrastructure around them.
type Supervisor struct {
	cfg          *config.AppConfig
	engines      []*engine.Engine
	healthServer *health.Server
	pruner       *worker.Pruner
	db           *postgres.DB
	redisCache   *redisclient.Cache
	log          *slog.Logger
}

// NewSupervisor creates a supervisor with all dependencies initialized.
// With no database URL configured it falls back to in-memory storage,
// which loses dedup and resume state on restart.
func NewSupervisor(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Supervisor, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("control: at least one account is required")
	}

	// 1. Storage
	var (
		runStateRepo  storage.RunStateRepository
		processedRepo storage.ProcessedRepository
		activityRepo  storage.ActivityRepository
		db            *postgres.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		runStateRepo = postgres.NewRunStateRepo(db)
		processedRepo = postgres.NewProcessedRepo(db)
		activityRepo = postgres.NewActivityRepo(db)
		log.Info("using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		runStateRepo = memory.NewRunStateRepo(store)
		processedRepo = memory.NewProcessedRepo(store)
		activityRepo = memory.NewActivityRepo(store)
		log.Warn("no database configured, using memory storage; state will not survive restarts")
	}

	// 2. Optional Redis dedup cache. Connection trouble degrades to the
	// durable repository, it never blocks startup.
	var redisCache *redisclient.Cache
	if cfg.Redis.URL != "" {
		cache, err := redisclient.NewCache(cfg.Redis, 24*time.Hour)
		if err != nil {
			log.Warn("failed to connect to Redis, dedup cache disabled", "error", err)
		} else {
			redisCache = cache
		}
	}

	var cacheLayer dedup.Cache
	if redisCache != nil {
		cacheLayer = redisCache
	}
	tracker := dedup.NewTracker(processedRepo, cacheLayer, log)
	recorder := activity.NewRecorder(activityRepo, log)

	// 3. Rate limiter: one shared budget across accounts, or one each.
	var sharedLimiter *ratelimit.Limiter
	if cfg.RateLimit.Shared {
		sharedLimiter = ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// 4. One engine per account.
	engines := make([]*engine.Engine, 0, len(cfg.Accounts))
	pollIntervals := make(map[string]time.Duration, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		source, err := rest.NewClient(rest.Config{
			BaseURL:     acc.Platform.BaseURL,
			AccessToken: acc.Platform.AccessToken,
			Timeout:     acc.Platform.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.ID, err)
		}

		generator, err := genai.NewClient(genai.Config{
			BaseURL: acc.GenAI.BaseURL,
			APIKey:  acc.GenAI.APIKey,
			Model:   acc.GenAI.Model,
			Timeout: acc.GenAI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.ID, err)
		}

		limiter := sharedLimiter
		if limiter == nil {
			limiter = ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}

		policy := recovery.NewPolicy(nil)
		policy.MaxAttempts = cfg.Retry.MaxAttempts
		policy.BaseDelay = cfg.Retry.BaseDelay
		policy.MaxDelay = cfg.Retry.MaxDelay

		eng, err := engine.New(engine.Config{
			AccountID:           acc.ID,
			SelfAuthorID:        acc.SelfAuthorID,
			Tone:                acc.Tone,
			PollInterval:        acc.PollInterval,
			PostFetchLimit:      acc.PostFetchLimit,
			MaxCommentsPerCheck: acc.MaxCommentsPerCheck,
			Source:              source,
			Generator:           generator,
			Publisher:           source,
			Recorder:            recorder,
			RunStates:           runStateRepo,
			Dedup:               tracker,
			Limiter:             limiter,
			Policy:              policy,
			Log:                 log,
		})
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.ID, err)
		}
		engines = append(engines, eng)
		pollIntervals[acc.ID] = acc.PollInterval
	}

	// 5. Health surface and retention worker.
	healthMon := health.NewMonitor(engines, pollIntervals)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	var pruner *worker.Pruner
	if cfg.Retention.ActivityPeriod > 0 {
		pruner = worker.NewPruner(cfg.Retention, activityRepo, log)
	}

	return &Supervisor{
		cfg:          cfg,
		engines:      engines,
		healthServer: healthServer,
		pruner:       pruner,
		db:           db,
		redisCache:   redisCache,
		log:          log,
	}, nil
}

// Engines returns the managed engines.
func (s *Supervisor) Engines() []*engine.Engine {
	return s.engines
}

// Start restores persisted run state, resumes previously active engines,
// and brings up the background services.
func (s *Supervisor) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("health server failed", "error", err)
		}
	}()

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}
	if s.pruner != nil {
		go s.pruner.Start(ctx)
	}

	for i, eng := range s.engines {
		if err := eng.Restore(ctx); err != nil {
			s.log.Warn("restore failed, account needs a manual start",
				"account", eng.AccountID(), "error", err)
			continue
		}
		// Auto-start applies to fresh accounts only; an account the user
		// explicitly stopped stays stopped across restarts.
		if eng.State() == engine.StateStopped && s.cfg.Accounts[i].AutoStart && eng.Snapshot().UpdatedAt.IsZero() {
			if err := eng.Start(ctx); err != nil {
				s.log.Error("failed to start engine", "account", eng.AccountID(), "error", err)
			}
		}
	}
	return nil
}

// Stop shuts everything down, letting in-flight cycles finish. Engines
// are suspended, not deactivated, so active accounts resume on restart.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.log.Info("stopping supervisor")

	for _, eng := range s.engines {
		if err := eng.Shutdown(ctx); err != nil {
			s.log.Warn("engine shutdown failed", "account", eng.AccountID(), "error", err)
		}
	}

	if s.redisCache != nil {
		if err := s.redisCache.Close(); err != nil {
			s.log.Warn("failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
