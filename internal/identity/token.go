// Package identity handles the external identity plane: verifying identity
// tokens, extracting provider claims, and completing the OAuth login flow.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User signs in at the identity provider (via /auth/login → provider page)
// 2. Provider calls back /auth/callback with a code
// 3. Server exchanges the code for the provider's user profile (claims)
// 4. Server upserts the user and issues a signed identity token, stored in
//    an HttpOnly cookie
// 5. On every API call, middleware validates the token and puts the
//    Identity in the request context — handlers pass it DOWN explicitly,
//    the service layer never reads ambient state
//
// The token is a JWT: the subject plus the profile claims are inside the
// signed payload, so no session storage is needed and every request
// re-derives the caller's identity from the token alone.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified assertion carried by an identity token:
// who the caller is (Subject) plus the profile claims the provider
// attached at issuance time. Claims other than Subject may be empty.
type Identity struct {
	Subject  string `json:"subject"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// TokenService signs and verifies identity tokens.
//
// It holds the HMAC secret key used for both operations. The same secret
// must be shared with whatever issues tokens — here that's our own login
// callback, so a single secret suffices.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("identity: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. Alongside the registered claims ("sub", "exp",
// ...) we carry the provider profile, using the standard OIDC claim names
// so tokens minted by a real provider parse the same way.
type claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

const issuer = "checklist"

// Issue creates and signs an identity token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies. Fine for a single-server deployment where we are both the
// issuer and the audience.
func (s *TokenService) Issue(ident Identity, ttl time.Duration) (string, error) {
	if ident.Subject == "" {
		return "", errors.New("identity: cannot issue a token without a subject")
	}

	now := time.Now()
	c := claims{
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.ImageURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("identity: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string and returns the Identity it
// asserts.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Verify(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("identity: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("identity: token expired")
		}
		return nil, fmt.Errorf("identity: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("identity: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("identity: token has no subject")
	}

	return &Identity{
		Subject:  c.Subject,
		Email:    c.Email,
		Name:     c.Name,
		ImageURL: c.Picture,
	}, nil
}
