// This file implements the pending task endpoints.
//
// Routes:
//   - GET  /api/tasks/{id}           -> Get
//   - POST /api/tasks/{id}/resolve   -> Resolve
//   - GET  /api/drivers/{id}/tasks   -> ListByDriver
package handler

import (
	"log/slog"
	"net/http"

	"github.com/pilotos/fleetcore/internal/service"
)

// TaskHandler handles pending task requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// RegisterRoutes registers task routes on the provided mux.
func (h *TaskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks/{id}", h.Get)
	mux.HandleFunc("POST /api/tasks/{id}/resolve", h.Resolve)
	mux.HandleFunc("GET /api/drivers/{id}/tasks", h.ListByDriver)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderTask(task))
}

// Resolve handles POST /api/tasks/{id}/resolve. Operator escape hatch; the
// normal resolution path is a successful photo replacement.
func (h *TaskHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.tasks.Resolve(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByDriver handles GET /api/drivers/{id}/tasks.
func (h *TaskHandler) ListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tasks, err := h.tasks.ListByDriver(r.Context(), driverID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]taskJSON, 0, len(tasks))
	for i := range tasks {
		out = append(out, *renderTask(&tasks[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": out})
}
