// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → resolves identity, enforces ownership
//	Repository (data layer)  → reads/writes the database
//
// Services accept an explicit *identity.Identity parameter rather than
// digging it out of the context themselves. The middleware verifies the
// token and the handler extracts the Identity once; from there the caller's
// identity flows through the code as a plain argument. Nothing below the
// handler reads ambient state, which keeps every method trivially callable
// from tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/checklist/internal/apperror"
	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/model"
	"github.com/sakif/checklist/internal/repository"
)

// UserService resolves identities to user accounts and provisions accounts
// for subjects seen for the first time.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// UserInfo is the composite the presentation layer uses to decide whether
// to trigger provisioning. Exactly one of User / Claims is set:
//   - User != nil                       → provisioned account
//   - Claims != nil, NeedsCreation true → verified identity, no account yet
//
// An anonymous caller gets a nil *UserInfo instead.
type UserInfo struct {
	User          *model.User        `json:"user,omitempty"`
	Claims        *identity.Identity `json:"claims,omitempty"`
	NeedsCreation bool               `json:"needsCreation,omitempty"`
}

// CurrentUser resolves the caller's identity to a provisioned account.
//
// Returns (nil, nil) both when the request carries no verified identity and
// when the identity's subject has no account yet — this layer deliberately
// doesn't distinguish the two. Callers that need the distinction use
// CurrentUserInfo.
func (s *UserService) CurrentUser(ctx context.Context, ident *identity.Identity) (*model.User, error) {
	if ident == nil {
		return nil, nil
	}

	user, err := s.users.GetBySubject(ctx, ident.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/user: resolving subject %s: %w", ident.Subject, err)
	}

	return user, nil
}

// CurrentUserOrFail is the authorization gate used by every task operation:
// same lookup as CurrentUser, but a missing identity or unprovisioned
// subject becomes an Unauthenticated error instead of nil.
func (s *UserService) CurrentUserOrFail(ctx context.Context, ident *identity.Identity) (*model.User, error) {
	user, err := s.CurrentUser(ctx, ident)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthenticated("user must be authenticated")
	}
	return user, nil
}

// CurrentUserInfo is the read-only composite behind GET /api/me.
//
// Three-way result: nil for anonymous callers; the stored user for
// provisioned subjects; the raw claims plus NeedsCreation for a verified
// identity that hasn't been provisioned yet.
func (s *UserService) CurrentUserInfo(ctx context.Context, ident *identity.Identity) (*UserInfo, error) {
	if ident == nil {
		return nil, nil
	}

	user, err := s.CurrentUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return &UserInfo{Claims: ident, NeedsCreation: true}, nil
	}

	return &UserInfo{User: user}, nil
}

// CreateCurrentUser provisions an account from the caller's own identity.
//
// IDEMPOTENT, NO OVERWRITE: if the subject already has an account, its id
// is returned unchanged and the stored claims are NOT touched. A client can
// call this with a stale token without clobbering fresher claims written by
// the login flow. This is deliberately different from CreateUser below.
//
// FIRST-PROVISION RACE: two concurrent first-time calls can both see "no
// account" and both insert. The users.subject UNIQUE constraint rejects the
// loser with a conflict, which we treat as "already provisioned" and
// resolve by re-running the lookup.
func (s *UserService) CreateCurrentUser(ctx context.Context, ident *identity.Identity) (string, error) {
	if ident == nil {
		return "", apperror.Unauthenticated("must be authenticated to create user")
	}

	existing, err := s.users.GetBySubject(ctx, ident.Subject)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return "", fmt.Errorf("service/user: looking up subject %s: %w", ident.Subject, err)
	}

	user := &model.User{
		Subject:  ident.Subject,
		Email:    ident.Email,
		Name:     ident.Name,
		ImageURL: ident.ImageURL,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the race — the account exists now, fetch it.
			winner, lookupErr := s.users.GetBySubject(ctx, ident.Subject)
			if lookupErr != nil {
				return "", fmt.Errorf("service/user: re-resolving subject %s after conflict: %w", ident.Subject, lookupErr)
			}
			return winner.ID, nil
		}
		return "", fmt.Errorf("service/user: provisioning subject %s: %w", ident.Subject, err)
	}

	s.logger.Info("user provisioned",
		slog.String("userID", user.ID),
		slog.String("subject", user.Subject),
	)

	return user.ID, nil
}

// CreateUser provisions or refreshes an account with claims supplied by a
// trusted caller (the provider's login webhook) rather than read from an
// inbound token.
//
// UPSERT SEMANTICS: unlike CreateCurrentUser, an existing account's
// email/name/image ARE overwritten with the supplied values. The caller is
// expected to hold fresh claims (it's invoked on every login event), so
// overwriting is the point. The id stays stable either way.
func (s *UserService) CreateUser(ctx context.Context, subject, email, name, imageURL string) (string, error) {
	if subject == "" {
		return "", apperror.ValidationFailed("subject", "subject is required")
	}

	user := &model.User{
		Subject:  subject,
		Email:    email,
		Name:     name,
		ImageURL: imageURL,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return "", fmt.Errorf("service/user: upserting subject %s: %w", subject, err)
	}

	s.logger.Info("user upserted",
		slog.String("userID", user.ID),
		slog.String("subject", user.Subject),
	)

	return user.ID, nil
}
