package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 30
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retention.PruneInterval == 0 {
		cfg.Retention.PruneInterval = time.Hour
	}

	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		if acc.ID == "" {
			return nil, fmt.Errorf("account %d: id is required", i)
		}
		if acc.SelfAuthorID == "" {
			acc.SelfAuthorID = acc.ID
		}
		if acc.PollInterval == 0 {
			acc.PollInterval = 60 * time.Second
		}
		if acc.PostFetchLimit == 0 {
			acc.PostFetchLimit = 10
		}
		if acc.MaxCommentsPerCheck == 0 {
			acc.MaxCommentsPerCheck = 10
		}
		if acc.Platform.Timeout == 0 {
			acc.Platform.Timeout = 15 * time.Second
		}
		if acc.GenAI.Timeout == 0 {
			acc.GenAI.Timeout = 30 * time.Second
		}
	}

	return &cfg, nil
}
