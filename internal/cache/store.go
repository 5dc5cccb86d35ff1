// Package cache implements the storefront cache: a TTL key-value store with
// prefix-based bulk deletion, the key grammar shared with the invalidation map, and the
// TTL policy per data volatility.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the cache contract. Implementations never return expired or deleted
// entries and never surface backend failures: a failed read is a miss.
type Store interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	DeleteKey(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string) int
	Stats(ctx context.Context) Stats
}

// Stats reports entry counts. Total includes expired entries not yet swept.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Get reads key and converts it to T. In-process stores hand back the stored value;
// serializing stores hand back JSON which is decoded into T. A value of the wrong
// shape is treated as a miss.
func Get[T any](ctx context.Context, s Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}
	if typed, ok := v.(T); ok {
		return typed, true
	}
	raw, ok := v.([]byte)
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false
	}
	return out, true
}
