package middleware

import (
	"crypto/subtle"
	"net/http"
)

// InternalKeyHeader carries the shared key on trusted backend-to-backend
// calls (the identity provider's login webhook hitting /internal/users).
const InternalKeyHeader = "X-Internal-Key"

// RequireInternalKey gates a route on a shared key. The comparison is
// constant-time so the key can't be recovered byte-by-byte from response
// timing. An empty configured key disables the route entirely — fail
// closed, not open.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				http.Error(w, `{"error":"not_found","message":"route disabled"}`, http.StatusNotFound)
				return
			}

			supplied := r.Header.Get(InternalKeyHeader)
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
				http.Error(w, `{"error":"unauthenticated","message":"valid internal key required"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
