package identity

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// identity value — no other package can collide with or shadow it.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the HttpOnly cookie the login callback stores the token in.
const CookieName = "token"

// RequireIdentity enforces a verified identity on protected routes.
//
// It reads the token from the Authorization header (Bearer scheme) or the
// token cookie, verifies it, and stores the Identity in the request
// context. If the token is missing or invalid it returns 401 and stops the
// chain.
//
// Note what this middleware does NOT do: it never touches the users table.
// A verified token only proves WHO is calling; whether that subject has a
// provisioned account is the service layer's decision, made per call.
func RequireIdentity(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"valid identity token required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalIdentity extracts the identity if a valid token is present but
// never blocks the request. Used on routes like GET /api/me where an
// anonymous caller gets a null response instead of a 401.
func OptionalIdentity(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, err := extractIdentity(r, tokens); err == nil && ident != nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext retrieves the verified identity from the request context.
// Returns (nil, false) for anonymous requests.
//
// Handlers call this once and pass the Identity into the service layer as
// an explicit parameter.
func FromContext(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*Identity)
	return ident, ok && ident != nil
}

// extractIdentity reads the token from the request and verifies it.
// Bearer header wins over the cookie so API clients can override a stale
// browser session.
func extractIdentity(r *http.Request, tokens *TokenService) (*Identity, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return tokens.Verify(strings.TrimPrefix(h, "Bearer "))
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return nil, err
	}
	return tokens.Verify(cookie.Value)
}
