package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/service"
)

// sessionTTL is how long an issued identity token stays valid. There is no
// refresh flow; an expired token just means signing in again.
const sessionTTL = 12 * time.Hour

// AuthHandler manages the browser login flow against the identity provider.
//
//   - HandleLogin    → redirect the browser to the provider's consent page
//   - HandleCallback → receive the code, exchange it, upsert the user,
//     issue the identity token cookie
//   - HandleLogout   → clear the cookie
type AuthHandler struct {
	provider *identity.Provider
	tokens   *identity.TokenService
	users    *service.UserService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	provider *identity.Provider,
	tokens *identity.TokenService,
	users *service.UserService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		tokens:   tokens,
		users:    users,
		logger:   logger,
	}
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/login
//
// The random state lands in a short-lived HttpOnly cookie; the callback
// verifies the provider echoed it back, which pins the callback to a flow
// this server started (CSRF protection).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the login flow.
//
// HTTP: GET /auth/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the provider's claims
//  3. Upsert the user — this is the fresh-claims path, so a returning
//     user's email/name/image are refreshed on every login
//  4. Issue our identity token in an HttpOnly cookie
//  5. Redirect home
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The provider sends error= when the user denied authorization
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	ident, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	if _, err := h.users.CreateUser(r.Context(), ident.Subject, ident.Email, ident.Name, ident.ImageURL); err != nil {
		h.logger.Error("auth callback: provisioning failed",
			slog.String("subject", ident.Subject),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(*ident, sessionTTL)
	if err != nil {
		h.logger.Error("auth callback: issuing token failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user signed in", slog.String("subject", ident.Subject))
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleLogout clears the identity token cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
