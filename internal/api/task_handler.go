package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tolaton/genqueue/internal/api/shared"
	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/store"
)

// CreateTaskRequest represents the request body for submitting a task
type CreateTaskRequest struct {
	Prompt   string         `json:"prompt" validate:"required,min=1"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateTaskResponse represents the response data for a created task
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskResponse represents the response data for a task status lookup
type TaskResponse struct {
	TaskID      string         `json:"task_id"`
	Prompt      string         `json:"prompt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	manager *lifecycle.Manager
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(manager *lifecycle.Manager, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		manager: manager,
		logger:  logger,
	}
}

// CreateTask handles POST /api/tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Prompt is required")
		return
	}

	taskID, err := h.manager.Create(r.Context(), req.Prompt, req.Metadata)
	if err != nil {
		// Creation is not retried here: a blind retry could enqueue a
		// duplicate task if the first attempt partially succeeded.
		h.logger.Error("failed to create task", "error", err)
		if errors.Is(err, lifecycle.ErrEnqueueFailed) || store.IsUnavailable(err) {
			shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Task submission failed")
			return
		}
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Task submission failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateTaskResponse{
		TaskID: taskID,
		Status: string(domain.StatusPending),
	})
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return
	}

	task, err := h.manager.GetStatus(r.Context(), taskID)
	if err != nil {
		if store.IsNotFound(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found or expired")
			return
		}
		h.logger.Error("failed to read task status", "task_id", taskID, "error", err)
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Status store unavailable")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{
		TaskID:      task.TaskID,
		Prompt:      task.Prompt,
		Metadata:    task.Metadata,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		Result:      task.Result,
		Error:       task.Error,
		CompletedAt: task.CompletedAt,
	})
}
