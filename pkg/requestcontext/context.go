// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services and the renderer read them without importing
// net/http.
//
//	now := requestcontext.Now(ctx)
//	session := requestcontext.CartSession(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	cartSessionKey struct{}
	hostKey        struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyCartSession = cartSessionKey{}
	ContextKeyHost        = hostKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// CartSession returns the opaque cart session id carried by the request, if any.
func CartSession(ctx context.Context) string {
	if s, ok := ctx.Value(ContextKeyCartSession).(string); ok {
		return s
	}
	return ""
}

// WithCartSession injects the cart session id.
func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeyCartSession, sessionID)
}

// Host returns the storefront hostname the request was addressed to.
func Host(ctx context.Context) string {
	if h, ok := ctx.Value(ContextKeyHost).(string); ok {
		return h
	}
	return ""
}

// WithHost injects the storefront hostname.
func WithHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, ContextKeyHost, host)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like the Kafka consumer, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Cart and checkout expiry use it so a whole request agrees on "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
