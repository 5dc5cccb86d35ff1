// Package redis opens the shared Redis connection used by the cache, the cart and
// checkout stores and the API rate limiter.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storefront/internal/platform/config"
)

// Client is the process-wide connection. Health backs the /healthz check.
type Client struct {
	*redis.Client
}

// New connects and pings. Callers only build a client when a URL is configured.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is not configured")
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Client{Client: client}, nil
}

// options overlays the pool settings on what the URL carries. Zero values keep the
// URL's or go-redis' defaults.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	setPositive(&opts.PoolSize, cfg.PoolSize)
	setPositive(&opts.MinIdleConns, cfg.MinIdleConns)
	setPositive(&opts.DialTimeout, cfg.DialTimeout)
	setPositive(&opts.ReadTimeout, cfg.ReadTimeout)
	setPositive(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setPositive[T ~int | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
