package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds request processing with context.WithTimeout. Handlers detect
// cancellation through the request context; the deadline propagates into
// reasoning tier calls and storage writes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
