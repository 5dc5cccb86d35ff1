// Package fetchers holds the read-through helper shared by the data fetchers. Each
// fetcher lives in its own subpackage.
package fetchers

import (
	"context"
	"errors"
	"time"

	"storefront/internal/cache"
	"storefront/internal/catalog/ports"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

// ReadThrough returns the cached value at key, or calls load and caches its result
// for ttl. Failed loads are not cached.
func ReadThrough[T any](ctx context.Context, c cache.Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := cache.Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, v, ttl)
	return v, nil
}

// TranslateError maps repository errors to coded errors. Not found stays not found,
// a bad page token is a bad request, and anything else is a data fetch failure.
func TranslateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	}
	if errors.Is(err, ports.ErrInvalidToken) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid page token")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeDataFetch, "failed to fetch "+what)
}

// ClampLimit bounds a requested page size to [1, max], using def for non-positive input.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
