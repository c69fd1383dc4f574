package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/checklist/internal/apperror"
	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/model"
	"github.com/sakif/checklist/internal/repository"
)

// TaskService handles the five task operations. Every operation first
// resolves the caller to a provisioned user via the UserService gate;
// mutations on an existing task additionally verify the caller owns it.
//
// Titles are stored verbatim: trimming is the caller's contract (the form
// layer trims before submitting). The only check here is that a title isn't
// empty after trimming, because a blank task is never valid regardless of
// who forgot to trim.
type TaskService struct {
	tasks  repository.TaskRepository
	users  *UserService
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks repository.TaskRepository, users *UserService, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		users:  users,
		logger: logger,
	}
}

// Create inserts a new task owned by the caller, Completed false.
func (s *TaskService) Create(ctx context.Context, ident *identity.Identity, title string) (*model.Task, error) {
	user, err := s.users.CurrentUserOrFail(ctx, ident)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	task := &model.Task{
		Title:     title,
		Completed: false,
		UserID:    user.ID,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("id", task.ID),
		slog.String("userID", user.ID),
	)

	return task, nil
}

// List returns all of the caller's tasks in creation order. A user with no
// tasks gets an empty slice, not an error.
func (s *TaskService) List(ctx context.Context, ident *identity.Identity) ([]model.Task, error) {
	user, err := s.users.CurrentUserOrFail(ctx, ident)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByOwner(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to list tasks",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	return tasks, nil
}

// Toggle flips the task's completion flag.
// Fails NotFound if no such task exists, Forbidden if the caller doesn't
// own it.
func (s *TaskService) Toggle(ctx context.Context, ident *identity.Identity, id string) error {
	user, err := s.users.CurrentUserOrFail(ctx, ident)
	if err != nil {
		return err
	}

	task, err := s.ownedTask(ctx, user, id, "toggle")
	if err != nil {
		return err
	}

	task.Completed = !task.Completed
	if err := s.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("toggling task %s: %w", id, err)
	}

	return nil
}

// Rename replaces the task's title with the supplied value verbatim.
// Same existence/ownership checks as Toggle.
func (s *TaskService) Rename(ctx context.Context, ident *identity.Identity, id, title string) error {
	user, err := s.users.CurrentUserOrFail(ctx, ident)
	if err != nil {
		return err
	}

	if strings.TrimSpace(title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}

	task, err := s.ownedTask(ctx, user, id, "update")
	if err != nil {
		return err
	}

	task.Title = title
	if err := s.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("renaming task %s: %w", id, err)
	}

	return nil
}

// Delete removes the task permanently. No soft-delete, no recovery.
// Same existence/ownership checks as Toggle.
func (s *TaskService) Delete(ctx context.Context, ident *identity.Identity, id string) error {
	user, err := s.users.CurrentUserOrFail(ctx, ident)
	if err != nil {
		return err
	}

	if _, err := s.ownedTask(ctx, user, id, "delete"); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	s.logger.Info("task deleted",
		slog.String("id", id),
		slog.String("userID", user.ID),
	)

	return nil
}

// ownedTask fetches the task and verifies the user owns it.
//
// Existence is checked before ownership, so a non-owner probing a random id
// learns "not found" vs "forbidden" — which reveals the id exists. The two
// failures are deliberately distinct statuses, and task ids are unguessable
// xids anyway.
//
// Note there is no lock between this check and the subsequent mutation: a
// delete racing a toggle is resolved by whichever store call lands first,
// and the loser surfaces NotFound from its own store call.
func (s *TaskService) ownedTask(ctx context.Context, user *model.User, id, verb string) (*model.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "task ID is required")
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.UserID != user.ID {
		return nil, apperror.Forbidden(fmt.Sprintf("you are not authorized to %s this task", verb))
	}

	return task, nil
}
