package planner

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avasilyev/mailsmith/internal/api"
	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/identity"
	"github.com/avasilyev/mailsmith/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBodySize = 64 << 10 // 64KB; task payloads are small

// Handler handles planner and task HTTP requests.
type Handler struct {
	svc         *Service
	repo        store.Repository
	rateLimiter *api.RateLimiter
}

// NewHandler creates a planner handler.
func NewHandler(svc *Service, repo store.Repository, rateLimiter *api.RateLimiter) *Handler {
	return &Handler{svc: svc, repo: repo, rateLimiter: rateLimiter}
}

// RegisterRoutes registers planner and task routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/schedule", h.GenerateSchedule)
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Put("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
		r.Get("/gpt-responses", h.ListGptResponses)
	})
}

type generateScheduleRequest struct {
	Hours string `json:"hours"`
}

type generateScheduleResponse struct {
	domain.GeneratedSchedule
	Plan domain.DayPlan `json:"plan"`
}

// GenerateSchedule handles POST /api/schedule.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req generateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Hours == "" {
		api.Error(w, http.StatusBadRequest, "hours is required")
		return
	}

	schedule, err := h.svc.GeneratePlan(r.Context(), userID, req.Hours)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			api.Error(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, ErrPaymentRequired):
			api.Error(w, http.StatusPaymentRequired, ErrPaymentRequired.Error())
		default:
			slog.Error("Plan generation failed", "user_id", userID, "error", err)
			api.Error(w, http.StatusInternalServerError, "an unexpected error occurred")
		}
		return
	}

	api.JSON(w, http.StatusOK, generateScheduleResponse{
		GeneratedSchedule: *schedule,
		Plan:              schedule.Arrange(),
	})
}

type createTaskRequest struct {
	Description string `json:"description"`
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		api.Error(w, http.StatusBadRequest, "description is required")
		return
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := h.repo.CreateTask(r.Context(), task); err != nil {
		slog.Error("Failed to create task", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	api.JSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	IsDone bool    `json:"isDone"`
	Time   float64 `json:"time"`
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	task, ok := h.ownedTask(w, r, userID, id)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.repo.UpdateTask(r.Context(), task.ID, req.IsDone, req.Time)
	if err != nil {
		slog.Error("Failed to update task", "task_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if updated == nil {
		api.Error(w, http.StatusNotFound, "task not found")
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	task, ok := h.ownedTask(w, r, userID, id)
	if !ok {
		return
	}

	if err := h.repo.DeleteTask(r.Context(), task.ID); err != nil {
		slog.Error("Failed to delete task", "task_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	api.JSON(w, http.StatusOK, task)
}

// ListTasks handles GET /api/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.repo.ListTasksByUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list tasks", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	api.JSON(w, http.StatusOK, tasks)
}

// ListGptResponses handles GET /api/gpt-responses.
func (h *Handler) ListGptResponses(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resps, err := h.svc.ListGptResponses(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list gpt responses", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list responses")
		return
	}
	if resps == nil {
		resps = []*domain.GptResponse{}
	}

	api.JSON(w, http.StatusOK, resps)
}

// ownedTask loads a task and verifies ownership. Tasks belonging to another
// user are reported as not found rather than forbidden.
func (h *Handler) ownedTask(w http.ResponseWriter, r *http.Request, userID, id string) (*domain.Task, bool) {
	if id == "" {
		api.Error(w, http.StatusBadRequest, "task id is required")
		return nil, false
	}

	task, err := h.repo.GetTask(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load task", "task_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load task")
		return nil, false
	}
	if task == nil || task.UserID != userID {
		api.Error(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}
