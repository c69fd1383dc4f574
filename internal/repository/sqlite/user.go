package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/checklist/internal/apperror"
	"github.com/sakif/checklist/internal/model"
	"github.com/sakif/checklist/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Insert creates a new user row.
//
// This is the no-overwrite provisioning path: it never touches an existing
// row. If the subject is already taken, the UNIQUE constraint fires and we
// return apperror.ErrConflict so the caller can treat the race as
// "somebody else provisioned first" and re-run the lookup.
func (db *DB) Insert(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, subject, email, name, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Subject,
		user.Email,
		user.Name,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Subject)
		}
		return fmt.Errorf("sqlite: inserting user (subject=%s): %w", user.Subject, err)
	}

	return nil
}

// Upsert inserts or updates a user based on their subject.
//
// First login → INSERT; subsequent logins → UPDATE email/name/image in case
// they changed at the provider. ON CONFLICT(subject) DO UPDATE makes the two
// cases one atomic statement: two concurrent first-time calls can't both
// take an insert path and surface a constraint error to the caller. Note
// this is not INSERT OR REPLACE, which would delete and recreate the row
// and hand out a new ID — the conflict clause updates the existing row in
// place, so the ID assigned at first insert stays stable forever.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, subject, email, name, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject) DO UPDATE SET
		 	email      = excluded.email,
		 	name       = excluded.name,
		 	image_url  = excluded.image_url,
		 	updated_at = excluded.updated_at`,
		xid.New().String(),
		user.Subject,
		user.Email,
		user.Name,
		user.ImageURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (subject=%s): %w", user.Subject, err)
	}

	// Read the canonical row back: on the update path the ID and created_at
	// are the ones assigned at first insert, not the values we just bound.
	stored, err := db.GetBySubject(ctx, user.Subject)
	if err != nil {
		return fmt.Errorf("sqlite: reading back upserted user (subject=%s): %w", user.Subject, err)
	}
	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id, "user", id)
}

// GetBySubject retrieves a user by the identity provider's subject.
// Returns apperror.ErrNotFound if the subject has never been provisioned.
func (db *DB) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	return db.getUser(ctx, `WHERE subject = ?`, subject, "user", subject)
}

func (db *DB) getUser(ctx context.Context, where, arg, resource, key string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, subject, email, name, image_url, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Subject,
		&u.Email,
		&u.Name,
		&u.ImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", resource, key, err)
	}

	return &u, nil
}
