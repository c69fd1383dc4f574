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

// compile-time check that *DB implements repository.TaskRepository
var _ repository.TaskRepository = (*DB)(nil)

// Create inserts a new task.
//
// The ID is an xid: 20 chars, URL-safe, and sortable by creation time —
// which makes it a stable tiebreaker for tasks created within the same
// created_at timestamp.
func (db *DB) Create(ctx context.Context, task *model.Task) error {
	task.ID = xid.New().String()

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, title, completed, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.Completed,
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task: %w", err)
	}

	return nil
}

// GetByID retrieves a single task by its ID.
// Returns apperror.ErrNotFound if the task doesn't exist.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, completed, user_id, created_at, updated_at
		 FROM tasks
		 WHERE id = ?`,
		id,
	).Scan(
		&task.ID,
		&task.Title,
		&task.Completed,
		&task.UserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}

	return &task, nil
}

// ListByOwner returns all tasks owned by the given user in creation order.
//
// ORDER BY created_at, id: created_at alone isn't unique (two quick inserts
// can land in the same second with DATETIME resolution), so the xid — itself
// time-ordered — breaks ties deterministically.
func (db *DB) ListByOwner(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, completed, user_id, created_at, updated_at
		 FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %s: %w", userID, err)
	}
	defer rows.Close()

	// Non-nil empty slice: a user with no tasks gets [] in JSON, not null.
	tasks := []model.Task{}
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Completed,
			&task.UserID,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating task rows: %w", err)
	}

	return tasks, nil
}

// Update persists the task's title and completion flag.
// Returns apperror.ErrNotFound if the task no longer exists — which is how
// a mutation racing a delete on the same id resolves.
func (db *DB) Update(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET title = ?, completed = ?, updated_at = ?
		 WHERE id = ?`,
		task.Title,
		task.Completed,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", task.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of task %s: %w", task.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("task", task.ID)
	}

	return nil
}

// Delete removes a task permanently.
// Returns apperror.ErrNotFound if the task doesn't exist.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of task %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("task", id)
	}

	return nil
}
