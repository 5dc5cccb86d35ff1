package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/pkg/platform/circuit"
)

const scanBatch = 500

// Redis is a shared cache backend. Values are stored as JSON under a namespace
// prefix; Get returns the raw JSON bytes which Get[T] decodes.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	logger    *slog.Logger
	breaker   *circuit.Breaker
}

type RedisOption func(*Redis)

// WithBreaker short-circuits reads and writes while Redis keeps failing. Reads become
// misses, so pages are served from the local layer and the origin. Deletions are
// always attempted.
func WithBreaker(b *circuit.Breaker) RedisOption {
	return func(r *Redis) {
		r.breaker = b
	}
}

// NewRedis creates a Redis-backed store. namespace is prepended to every key so
// several deployments can share one Redis.
func NewRedis(client redis.UniversalClient, namespace string, logger *slog.Logger, opts ...RedisOption) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Redis{client: client, namespace: namespace, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) allow() bool {
	return r.breaker == nil || r.breaker.Allow()
}

func (r *Redis) record(ctx context.Context, err error) {
	if r.breaker == nil {
		return
	}
	if err == nil {
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "redis cache recovered", "breaker", r.breaker.Name())
		}
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "redis cache disabled after repeated failures", "breaker", r.breaker.Name(), "error", err)
	}
}

func (r *Redis) key(k string) string {
	return r.namespace + k
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool) {
	if !r.allow() {
		return nil, false
	}
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.record(ctx, nil)
		return nil, false
	}
	r.record(ctx, err)
	if err != nil {
		r.logger.WarnContext(ctx, "redis cache get failed", "key", key, "error", err)
		return nil, false
	}
	return raw, true
}

// Set serializes value as JSON. Values that cannot be serialized are skipped.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.DebugContext(ctx, "value not cacheable in redis", "key", key, "error", err)
		return
	}
	if !r.allow() {
		return
	}
	err = r.client.Set(ctx, r.key(key), raw, ttl).Err()
	r.record(ctx, err)
	if err != nil {
		r.logger.WarnContext(ctx, "redis cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) DeleteKey(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.WarnContext(ctx, "redis cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix walks the keyspace with SCAN and deletes matches in pipelined batches.
func (r *Redis) DeleteByPrefix(ctx context.Context, prefix string) int {
	if prefix == "" {
		return 0
	}
	match := r.key(escapeGlob(prefix)) + "*"
	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			r.logger.WarnContext(ctx, "redis cache scan failed", "prefix", prefix, "error", err)
			return removed
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			cmds, err := pipe.Exec(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "redis cache pipeline delete failed", "prefix", prefix, "error", err)
			}
			for _, cmd := range cmds {
				if n, err := cmd.(*redis.IntCmd).Result(); err == nil {
					removed += int(n)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return removed
		}
	}
}

// Stats counts keys under the namespace. Redis expires keys itself, so every counted
// key is active.
func (r *Redis) Stats(ctx context.Context) Stats {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), scanBatch).Result()
		if err != nil {
			r.logger.WarnContext(ctx, "redis cache stats scan failed", "error", err)
			break
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return Stats{Total: total, Active: total}
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
