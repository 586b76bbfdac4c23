// This file implements the incident workflow endpoints.
//
// Routes:
//   - POST  /api/incidents                -> Raise
//   - PATCH /api/incidents/{id}/close     -> Close
//   - GET   /api/incidents/{id}           -> Get
//   - GET   /api/owners/{id}/incidents    -> ListByApprover
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
)

// IncidentHandler handles incident requests.
type IncidentHandler struct {
	incidents service.IncidentService
	logger    *slog.Logger
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(incidents service.IncidentService, logger *slog.Logger) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, logger: logger}
}

// RegisterRoutes registers incident routes on the provided mux.
func (h *IncidentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/incidents", h.Raise)
	mux.HandleFunc("PATCH /api/incidents/{id}/close", h.Close)
	mux.HandleFunc("GET /api/incidents/{id}", h.Get)
	mux.HandleFunc("GET /api/owners/{id}/incidents", h.ListByApprover)
}

type raiseIncidentRequest struct {
	ReportID      uuid.UUID `json:"report_id"`
	DriverID      uuid.UUID `json:"driver_id"`
	Description   string    `json:"description"`
	Decision      string    `json:"decision"`
	Justification string    `json:"justification"`
}

type incidentJSON struct {
	ID            uuid.UUID  `json:"id"`
	ReportID      uuid.UUID  `json:"report_id"`
	Description   string     `json:"description"`
	Decision      string     `json:"decision"`
	Justification string     `json:"justification,omitempty"`
	ApproverID    uuid.UUID  `json:"approver_id"`
	Status        string     `json:"status"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func renderIncident(i *domain.Incident) incidentJSON {
	return incidentJSON{
		ID:            i.ID,
		ReportID:      i.ReportID,
		Description:   i.Description,
		Decision:      i.Decision,
		Justification: i.Justification,
		ApproverID:    i.ApproverID,
		Status:        string(i.Status),
		ClosedAt:      i.ClosedAt,
		CreatedAt:     i.CreatedAt,
	}
}

// Raise handles POST /api/incidents.
func (h *IncidentHandler) Raise(w http.ResponseWriter, r *http.Request) {
	var req raiseIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	incident, err := h.incidents.Raise(r.Context(), domain.CreateIncidentParams{
		ReportID:      req.ReportID,
		DriverID:      req.DriverID,
		Description:   req.Description,
		Decision:      req.Decision,
		Justification: req.Justification,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderIncident(incident))
}

type closeIncidentRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
}

// Close handles PATCH /api/incidents/{id}/close.
func (h *IncidentHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req closeIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	closed, err := h.incidents.Close(r.Context(), id, req.ActorID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderIncident(closed))
}

// Get handles GET /api/incidents/{id}.
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	incident, err := h.incidents.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderIncident(incident))
}

// ListByApprover handles GET /api/owners/{id}/incidents.
func (h *IncidentHandler) ListByApprover(w http.ResponseWriter, r *http.Request) {
	approverID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	incidents, err := h.incidents.ListByApprover(r.Context(), approverID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]incidentJSON, 0, len(incidents))
	for i := range incidents {
		out = append(out, renderIncident(&incidents[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"incidents": out})
}
