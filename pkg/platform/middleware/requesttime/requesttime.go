// Package requesttime provides middleware for request-scoped time.
// Every operation within a single storefront request shares the same "now", so cart
// expiry, checkout expiry and cache timestamps agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"storefront/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
