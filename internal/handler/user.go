package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/service"
)

// UserHandler exposes identity resolution and provisioning over HTTP.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userIDResponse is the body returned by both provisioning endpoints.
type userIDResponse struct {
	ID string `json:"id"`
}

// createUserRequest is the body for the trusted provisioning endpoint.
type createUserRequest struct {
	Subject  string `json:"subject"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// HandleMe returns the caller's account state.
//
// HTTP: GET /api/me  (OptionalIdentity — never 401)
//
// Three possible 200 bodies, matching what the client branches on:
//   - null                                  → anonymous
//   - {"user": {...}}                       → provisioned
//   - {"claims": {...}, "needsCreation": true} → verified, not provisioned
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())

	info, err := h.users.CurrentUserInfo(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}

	if info == nil {
		// Encodes as the JSON literal null.
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleCreateCurrentUser provisions an account from the caller's own
// verified identity. Idempotent: repeat calls return the same id and never
// overwrite stored claims.
//
// HTTP: POST /api/users/me
func (h *UserHandler) HandleCreateCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())

	id, err := h.users.CreateCurrentUser(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userIDResponse{ID: id})
}

// HandleCreateUser provisions or refreshes an account with claims supplied
// in the body. Reached only through the internal-key middleware — this is
// the backend-to-backend path the identity provider's login webhook calls
// with fresh claims.
//
// HTTP: POST /internal/users
// BODY: {"subject": "...", "email": "...", "name": "...", "imageUrl": "..."}
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	id, err := h.users.CreateUser(r.Context(), req.Subject, req.Email, req.Name, req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userIDResponse{ID: id})
}
