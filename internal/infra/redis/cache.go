package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed recent-ID cache used as the dedup fast path.
// It is an accelerator only: correctness always rests on the durable
// store, so every operation here is allowed to fail softly.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewCache creates a new Redis cache client.
func NewCache(cfg Config, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func processedKey(accountID, commentID string) string {
	return fmt.Sprintf("processed:%s:%s", accountID, commentID)
}

// IsProcessed checks the cache for a handled comment ID.
func (c *Cache) IsProcessed(ctx context.Context, accountID, commentID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, processedKey(accountID, commentID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records a handled comment ID with the cache TTL.
func (c *Cache) MarkProcessed(ctx context.Context, accountID, commentID string) error {
	if err := c.rdb.Set(ctx, processedKey(accountID, commentID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
