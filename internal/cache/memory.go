package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	cachemetrics "storefront/internal/cache/metrics"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is the process-local store. Values are shared by reference across requests,
// so callers treat what they read as immutable.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	metrics *cachemetrics.Metrics
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithMetrics records hits, misses and deletions.
func WithMetrics(metrics *cachemetrics.Metrics) MemoryOption {
	return func(m *Memory) {
		m.metrics = metrics
	}
}

// NewMemory creates an empty process-local store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		m.recordMiss(key)
		return nil, false
	}
	m.recordHit(key)
	return e.value, true
}

// Set stores value until ttl elapses. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) DeleteKey(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeleteByPrefix removes every key starting with prefix and returns how many were
// removed. The scan is linear in the number of entries.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) int {
	if prefix == "" {
		return 0
	}
	removed := 0
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			removed++
		}
	}
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ObserveDeleted(removed)
	}
	return removed
}

func (m *Memory) Stats(_ context.Context) Stats {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{Total: len(m.entries)}
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			stats.Active++
		}
	}
	return stats
}

// Sweep drops expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()
	dropped := 0
	m.mu.Lock()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			dropped++
		}
	}
	size := len(m.entries)
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SetEntries(size)
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Clear drops everything.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

func (m *Memory) recordHit(key string) {
	if m.metrics != nil {
		m.metrics.IncrementHit(Family(key))
	}
}

func (m *Memory) recordMiss(key string) {
	if m.metrics != nil {
		m.metrics.IncrementMiss(Family(key))
	}
}
