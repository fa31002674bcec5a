// Package redis wraps the go-redis client with application configuration.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yaksh9737/event-manager/pkg/config"
)

// Client wraps goredis.Client
type Client struct {
	*goredis.Client
}

// New creates a Redis client from application configuration and verifies
// connectivity before returning.
func New(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// NewFromAddr creates a Redis client for a bare address. Used by tests
// that point at a miniredis instance.
func NewFromAddr(addr string) *Client {
	return &Client{Client: goredis.NewClient(&goredis.Options{Addr: addr})}
}

// HealthCheck verifies the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
