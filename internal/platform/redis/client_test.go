package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/platform/config"
)

func TestOptionsOverlayPoolSettings(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:         "redis://cache.internal:6380/2",
		PoolSize:    25,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Zero(t, opts.MinIdleConns)
}

func TestOptionsRejectsBadURL(t *testing.T) {
	_, err := options(config.RedisConfig{URL: "memcached://nope"})
	assert.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}
