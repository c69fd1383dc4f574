package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/service"
)

// TaskHandler exposes the task operations over HTTP.
//
// Each handler does the same three things: pull the verified identity out
// of the request context (put there by identity.RequireIdentity), parse the
// request, and call the service with the identity as an explicit argument.
// All authorization decisions live in the service layer.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// taskRequest is the body for create and rename.
type taskRequest struct {
	Title string `json:"title"`
}

// HandleList returns all of the caller's tasks.
//
// HTTP: GET /api/tasks
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())

	tasks, err := h.tasks.List(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleCreate creates a new task.
//
// HTTP: POST /api/tasks
// BODY: {"title": "Buy milk"}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid task JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.Create(r.Context(), ident, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// HandleToggle flips a task's completion flag.
//
// HTTP: POST /api/tasks/{id}/toggle
func (h *TaskHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())
	id := r.PathValue("id")

	if err := h.tasks.Toggle(r.Context(), ident, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRename replaces a task's title.
//
// HTTP: PUT /api/tasks/{id}
// BODY: {"title": "new title"}
func (h *TaskHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())
	id := r.PathValue("id")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid task JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.tasks.Rename(r.Context(), ident, id, req.Title); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a task permanently.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, _ := identity.FromContext(r.Context())
	id := r.PathValue("id")

	if err := h.tasks.Delete(r.Context(), ident, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
