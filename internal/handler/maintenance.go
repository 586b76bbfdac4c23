// This file implements the maintenance scheduling endpoints.
//
// Routes:
//   - GET  /api/maintenance/catalog            -> Catalog
//   - GET  /api/vehicles/{id}/maintenance      -> ListByVehicle
//   - POST /api/maintenance/{id}/resolve       -> Resolve
//   - POST /api/maintenance/{id}/frequency     -> LearnFrequency
//   - POST /api/maintenance/sweep              -> Sweep (manual trigger)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
)

// MaintenanceHandler handles maintenance requests.
type MaintenanceHandler struct {
	maintenance service.MaintenanceService
	logger      *slog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(maintenance service.MaintenanceService, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance, logger: logger}
}

// RegisterRoutes registers maintenance routes on the provided mux.
func (h *MaintenanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/maintenance/catalog", h.Catalog)
	mux.HandleFunc("GET /api/vehicles/{id}/maintenance", h.ListByVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}/maintenance/upcoming", h.Upcoming)
	mux.HandleFunc("POST /api/maintenance/{id}/resolve", h.Resolve)
	mux.HandleFunc("POST /api/maintenance/{id}/frequency", h.LearnFrequency)
	mux.HandleFunc("POST /api/maintenance/sweep", h.Sweep)
}

type catalogItemJSON struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	TriggerKind    string    `json:"trigger_kind"`
	IntervalKm     int64     `json:"interval_km,omitempty"`
	IntervalMonths int       `json:"interval_months,omitempty"`
}

func renderCatalogItem(c *domain.MaintenanceCatalogItem) catalogItemJSON {
	return catalogItemJSON{
		ID:             c.ID,
		Name:           c.Name,
		TriggerKind:    string(c.Trigger.Kind),
		IntervalKm:     c.Trigger.IntervalKm,
		IntervalMonths: c.Trigger.IntervalMonths,
	}
}

type maintenanceStateJSON struct {
	ID          uuid.UUID       `json:"id"`
	VehicleID   uuid.UUID       `json:"vehicle_id"`
	Item        catalogItemJSON `json:"item"`
	LastKm      *int64          `json:"last_km,omitempty"`
	LastDate    *time.Time      `json:"last_date,omitempty"`
	NextDueKm   *int64          `json:"next_due_km,omitempty"`
	NextDueDate *time.Time      `json:"next_due_date,omitempty"`
	LearnedKm   *int64          `json:"learned_km,omitempty"`
	Status      string          `json:"status"`
	Reminded    bool            `json:"reminded"`
}

func renderMaintenanceState(state *domain.VehicleMaintenanceState, item *domain.MaintenanceCatalogItem) maintenanceStateJSON {
	return maintenanceStateJSON{
		ID:          state.ID,
		VehicleID:   state.VehicleID,
		Item:        renderCatalogItem(item),
		LastKm:      state.LastKm,
		LastDate:    state.LastDate,
		NextDueKm:   state.NextDueKm,
		NextDueDate: state.NextDueDate,
		LearnedKm:   state.LearnedKm,
		Status:      string(state.Status),
		Reminded:    state.Reminded,
	}
}

// Catalog handles GET /api/maintenance/catalog.
func (h *MaintenanceHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.maintenance.Catalog(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]catalogItemJSON, 0, len(items))
	for i := range items {
		out = append(out, renderCatalogItem(&items[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"catalog": out})
}

// ListByVehicle handles GET /api/vehicles/{id}/maintenance.
func (h *MaintenanceHandler) ListByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rows, err := h.maintenance.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]maintenanceStateJSON, 0, len(rows))
	for i := range rows {
		out = append(out, renderMaintenanceState(&rows[i].State, &rows[i].Item))
	}
	respondJSON(w, http.StatusOK, map[string]any{"maintenance": out})
}

// Upcoming handles GET /api/vehicles/{id}/maintenance/upcoming.
func (h *MaintenanceHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rows, err := h.maintenance.Upcoming(r.Context(), vehicleID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]maintenanceStateJSON, 0, len(rows))
	for i := range rows {
		out = append(out, renderMaintenanceState(&rows[i].State, &rows[i].Item))
	}
	respondJSON(w, http.StatusOK, map[string]any{"upcoming": out})
}

type resolveMaintenanceRequest struct {
	PerformedKm  *int64 `json:"performed_km,omitempty"`
	PerformedAt  string `json:"performed_at,omitempty"` // YYYY-MM-DD
	ExpenseCents int64  `json:"expense_cents,omitempty"`
	InvoiceRef   string `json:"invoice_ref,omitempty"`
}

// Resolve handles POST /api/maintenance/{id}/resolve.
func (h *MaintenanceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	stateID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req resolveMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.ResolveMaintenanceParams{
		StateID:      stateID,
		PerformedKm:  req.PerformedKm,
		ExpenseCents: req.ExpenseCents,
		InvoiceRef:   req.InvoiceRef,
	}
	if req.PerformedAt != "" {
		performedAt, err := time.Parse("2006-01-02", req.PerformedAt)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("maintenance.resolve", "performed_at must be YYYY-MM-DD"))
			return
		}
		params.PerformedAt = &performedAt
	}

	state, err := h.maintenance.Resolve(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderResolvedState(state))
}

type learnFrequencyRequest struct {
	LearnedKm int64 `json:"learned_km"`
}

// LearnFrequency handles POST /api/maintenance/{id}/frequency.
func (h *MaintenanceHandler) LearnFrequency(w http.ResponseWriter, r *http.Request) {
	stateID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req learnFrequencyRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	state, err := h.maintenance.LearnFrequency(r.Context(), stateID, req.LearnedKm)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderResolvedState(state))
}

// renderResolvedState renders a bare state without its catalog item, for
// endpoints that act on a single obligation.
func renderResolvedState(state *domain.VehicleMaintenanceState) map[string]any {
	return map[string]any{
		"id":            state.ID,
		"vehicle_id":    state.VehicleID,
		"last_km":       state.LastKm,
		"last_date":     state.LastDate,
		"next_due_km":   state.NextDueKm,
		"next_due_date": state.NextDueDate,
		"learned_km":    state.LearnedKm,
		"status":        string(state.Status),
	}
}

// Sweep handles POST /api/maintenance/sweep. The worker runs the sweep on a
// schedule; this is the manual trigger.
func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	stats, err := h.maintenance.Sweep(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"evaluated": stats.Evaluated,
		"overdue":   stats.Overdue,
		"reminded":  stats.Reminded,
		"reopened":  stats.Reopened,
	})
}
