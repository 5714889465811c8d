package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tasks cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), p, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	w.Header().Set("Location", "/tasks/"+task.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return
	}

	in, err := parseListQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.tasks.List(r.Context(), p, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	resp := TaskListResponse{
		Tasks:    make([]TaskResponse, 0, len(page.Tasks)),
		NextPage: page.NextPageToken,
	}
	for i := range page.Tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(&page.Tasks[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, id, ok := handlePrincipalAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), p, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, id, ok := handlePrincipalAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	u := domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate.Set {
		if req.DueDate.Value == nil {
			u.ClearDueDate = true
		} else {
			u.DueDate = req.DueDate.Value
		}
	}
	if req.Status != nil {
		s, err := domain.ParseStatus(*req.Status)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		u.Status = &s
	}

	task, err := h.tasks.Update(r.Context(), p, id, u)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// TransitionTask handles POST /tasks/{id}/transition.
func (h *TaskHandler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, id, ok := handlePrincipalAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.Transition(r.Context(), p, id, to)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to transition task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, id, ok := handlePrincipalAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), p, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
