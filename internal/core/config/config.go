package config

import (
	"time"

	redisclient "github.com/Amaayu/Social-media-automaton/internal/infra/redis"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Accounts  []AccountConfig    `yaml:"accounts"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Retry     RetryConfig        `yaml:"retry"`
	Retention RetentionConfig    `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AccountConfig holds settings for one monitored account.
type AccountConfig struct {
	ID                  string        `yaml:"id"`
	SelfAuthorID        string        `yaml:"self_author_id"` // defaults to id
	Tone                string        `yaml:"tone"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	PostFetchLimit      int           `yaml:"post_fetch_limit"`
	MaxCommentsPerCheck int           `yaml:"max_comments_per_check"`
	AutoStart           bool          `yaml:"auto_start"` // start without a prior active run state

	Platform PlatformConfig `yaml:"platform"`
	GenAI    GenAIConfig    `yaml:"genai"`
}

// PlatformConfig holds the social platform API settings for an account.
type PlatformConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GenAIConfig holds the reply generation service settings.
type GenAIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig holds the shared external-call budget.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
	Shared bool          `yaml:"shared"` // one limiter across all accounts
}

// RetryConfig holds the retry policy settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// RetentionConfig holds activity log pruning settings.
type RetentionConfig struct {
	ActivityPeriod time.Duration `yaml:"activity_period"` // 0 = infinite
	PruneInterval  time.Duration `yaml:"prune_interval"`
}
