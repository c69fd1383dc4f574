package repository

import (
	"context"

	"github.com/sakif/checklist/internal/model"
)

// UserRepository persists user accounts keyed by the identity provider's
// subject. Implementations must enforce at most one user per subject.
type UserRepository interface {
	// Insert creates a new user. Returns apperror.ErrConflict if a user
	// with the same subject already exists.
	Insert(ctx context.Context, user *model.User) error
	// Upsert creates the user, or overwrites email/name/image for an
	// existing subject. The internal ID is stable across upserts.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetBySubject returns apperror.ErrNotFound when the subject has no
	// provisioned account.
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
}

// TaskRepository persists tasks. Ownership checks are the service layer's
// job; the repository only stores and indexes.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// ListByOwner returns the owner's tasks in creation order.
	ListByOwner(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}
