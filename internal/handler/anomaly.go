// This file implements the anomaly accumulator endpoints.
//
// Routes:
//   - POST /api/anomalies               -> Record
//   - GET  /api/drivers/{id}/anomalies  -> ListByDriver
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
)

// AnomalyHandler handles anomaly requests.
type AnomalyHandler struct {
	anomalies service.AnomalyService
	logger    *slog.Logger
}

// NewAnomalyHandler creates a new AnomalyHandler.
func NewAnomalyHandler(anomalies service.AnomalyService, logger *slog.Logger) *AnomalyHandler {
	return &AnomalyHandler{anomalies: anomalies, logger: logger}
}

// RegisterRoutes registers anomaly routes on the provided mux.
func (h *AnomalyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/anomalies", h.Record)
	mux.HandleFunc("GET /api/drivers/{id}/anomalies", h.ListByDriver)
}

type recordAnomalyRequest struct {
	DriverID    uuid.UUID `json:"driver_id"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
}

type anomalyJSON struct {
	ID          uuid.UUID `json:"id"`
	DriverID    uuid.UUID `json:"driver_id"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Notified    bool      `json:"notified"`
	CreatedAt   time.Time `json:"created_at"`
}

func renderAnomaly(a *domain.Anomaly) anomalyJSON {
	return anomalyJSON{
		ID:          a.ID,
		DriverID:    a.DriverID,
		Severity:    string(a.Severity),
		Description: a.Description,
		Notified:    a.Notified,
		CreatedAt:   a.CreatedAt,
	}
}

// Record handles POST /api/anomalies.
func (h *AnomalyHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordAnomalyRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.anomalies.Record(r.Context(), domain.CreateAnomalyParams{
		DriverID:    req.DriverID,
		Severity:    domain.AnomalySeverity(req.Severity),
		Description: req.Description,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"anomaly":  renderAnomaly(result.Anomaly),
		"total":    result.Total,
		"notified": result.Notified,
		"rule":     result.Rule,
	})
}

// ListByDriver handles GET /api/drivers/{id}/anomalies.
func (h *AnomalyHandler) ListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	anomalies, err := h.anomalies.ListByDriver(r.Context(), driverID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	total, err := h.anomalies.CountByDriver(r.Context(), driverID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]anomalyJSON, 0, len(anomalies))
	for i := range anomalies {
		out = append(out, renderAnomaly(&anomalies[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"anomalies": out,
		"total":     total,
	})
}
