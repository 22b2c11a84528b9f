package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/tmdbproxy/internal/core/domain"
)

// Client wraps Redis operations for fallback document overrides.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Enabled reports whether a Redis URL was configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func fallbackKey(kind domain.ResourceKind) string {
	return fmt.Sprintf("fallback:%s", kind)
}

// FallbackDocument returns the stored override for kind, or nil when none exists.
func (c *Client) FallbackDocument(ctx context.Context, kind domain.ResourceKind) ([]byte, error) {
	data, err := c.rdb.Get(ctx, fallbackKey(kind)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return data, nil
}

// SetFallbackDocument stores an override for kind. The proxy only reads
// overrides at startup, so a running process keeps its documents.
func (c *Client) SetFallbackDocument(ctx context.Context, kind domain.ResourceKind, data []byte) error {
	if err := c.rdb.Set(ctx, fallbackKey(kind), data, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
