package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many admissions pass between removals of idle windows.
const sweepEvery = 1024

// Memory is a process-local Store. Each instance counts its own traffic.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	calls   int
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewMemory() *Memory {
	return &Memory{windows: make(map[string]*slidingWindow), now: time.Now}
}

func (m *Memory) AllowN(_ context.Context, key string, cost, limit int, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	sw := m.windows[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		m.windows[key] = sw
	}
	sw.window = window
	sw.cleanup(now)

	if len(sw.timestamps)+cost > limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: sw.resetAt(now)}, nil
	}
	for range cost {
		sw.timestamps = append(sw.timestamps, now)
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.resetAt(now),
	}, nil
}

// sweep drops windows with no live timestamps. Must be called with mu held.
func (m *Memory) sweep(now time.Time) {
	for key, sw := range m.windows {
		sw.cleanup(now)
		if len(sw.timestamps) == 0 {
			delete(m.windows, key)
		}
	}
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// resetAt is when the oldest counted request leaves the window.
func (sw *slidingWindow) resetAt(now time.Time) time.Time {
	if len(sw.timestamps) == 0 {
		return now.Add(sw.window)
	}
	return sw.timestamps[0].Add(sw.window)
}
