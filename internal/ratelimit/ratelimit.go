// Package ratelimit throttles the cart and checkout API per client IP with a sliding
// window. Page rendering is not limited; it is served from cache.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window admits a request again.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	return max(secs, 1)
}

// Store counts requests per key over a sliding window.
type Store interface {
	// AllowN admits cost requests for key when the window has room and records them.
	// A denied call records nothing.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error)
}
