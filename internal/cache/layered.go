package cache

import (
	"context"
	"time"
)

// Layered fronts a shared store with the process-local one. Reads prefer the local
// layer; writes and deletions go to both. Values the shared layer cannot serialize
// (compiled templates) simply live only in the local layer.
type Layered struct {
	local  *Memory
	shared Store
}

// NewLayered combines a local and a shared store.
func NewLayered(local *Memory, shared Store) *Layered {
	return &Layered{local: local, shared: shared}
}

func (l *Layered) Get(ctx context.Context, key string) (any, bool) {
	if v, ok := l.local.Get(ctx, key); ok {
		return v, true
	}
	return l.shared.Get(ctx, key)
}

func (l *Layered) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	l.local.Set(ctx, key, value, ttl)
	l.shared.Set(ctx, key, value, ttl)
}

func (l *Layered) DeleteKey(ctx context.Context, key string) {
	l.local.DeleteKey(ctx, key)
	l.shared.DeleteKey(ctx, key)
}

// DeleteByPrefix returns the larger of the two layers' counts: the same logical entry
// usually exists in both.
func (l *Layered) DeleteByPrefix(ctx context.Context, prefix string) int {
	local := l.local.DeleteByPrefix(ctx, prefix)
	shared := l.shared.DeleteByPrefix(ctx, prefix)
	return max(local, shared)
}

func (l *Layered) Stats(ctx context.Context) Stats {
	return l.shared.Stats(ctx)
}
