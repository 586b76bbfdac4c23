// This file implements the daily report endpoints.
//
// Routes:
//   - POST /api/reports              -> Submit
//   - GET  /api/reports              -> List (vehicle_id, driver_id, from, to)
//   - GET  /api/reports/{id}          -> Get
//   - GET  /api/reports/{id}/evidence -> ListEvidence
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
	"github.com/pilotos/fleetcore/internal/service"
)

// ReportHandler handles daily report requests.
type ReportHandler struct {
	reports  service.ReportService
	evidence service.EvidenceService
	logger   *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports service.ReportService, evidence service.EvidenceService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, evidence: evidence, logger: logger}
}

// RegisterRoutes registers report routes on the provided mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports", h.Submit)
	mux.HandleFunc("GET /api/reports", h.List)
	mux.HandleFunc("GET /api/reports/{id}", h.Get)
	mux.HandleFunc("GET /api/reports/{id}/evidence", h.ListEvidence)
}

type submitReportRequest struct {
	VehicleID         uuid.UUID `json:"vehicle_id"`
	DriverID          uuid.UUID `json:"driver_id"`
	WorkDate          string    `json:"work_date"` // YYYY-MM-DD
	StartOdometerKm   int64     `json:"start_odometer_km"`
	EndOdometerKm     int64     `json:"end_odometer_km"`
	TotalRevenueCents int64     `json:"total_revenue_cents"`
	CardRevenueCents  int64     `json:"card_revenue_cents"`
	FuelExpenseCents  int64     `json:"fuel_expense_cents"`
	MeterPhotoRef     string    `json:"meter_photo_ref"`
	FuelPhotoRef      string    `json:"fuel_photo_ref"`
}

type reportJSON struct {
	ID                uuid.UUID `json:"id"`
	VehicleID         uuid.UUID `json:"vehicle_id"`
	DriverID          uuid.UUID `json:"driver_id"`
	WorkDate          string    `json:"work_date"`
	StartOdometerKm   int64     `json:"start_odometer_km"`
	EndOdometerKm     int64     `json:"end_odometer_km"`
	DistanceKm        int64     `json:"distance_km"`
	TotalRevenueCents int64     `json:"total_revenue_cents"`
	CardRevenueCents  int64     `json:"card_revenue_cents"`
	FuelExpenseCents  int64     `json:"fuel_expense_cents"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type submitReportResponse struct {
	Report reportJSON        `json:"report"`
	Meter  *attachResultJSON `json:"meter"`
	Fuel   *attachResultJSON `json:"fuel,omitempty"`
}

func renderReport(r *domain.DailyReport) reportJSON {
	return reportJSON{
		ID:                r.ID,
		VehicleID:         r.VehicleID,
		DriverID:          r.DriverID,
		WorkDate:          r.WorkDate.Format("2006-01-02"),
		StartOdometerKm:   r.StartOdometerKm,
		EndOdometerKm:     r.EndOdometerKm,
		DistanceKm:        r.DistanceKm(),
		TotalRevenueCents: r.TotalRevenueCents,
		CardRevenueCents:  r.CardRevenueCents,
		FuelExpenseCents:  r.FuelExpenseCents,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
	}
}

// Submit handles POST /api/reports.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.CreateReportParams{
		VehicleID:         req.VehicleID,
		DriverID:          req.DriverID,
		StartOdometerKm:   req.StartOdometerKm,
		EndOdometerKm:     req.EndOdometerKm,
		TotalRevenueCents: req.TotalRevenueCents,
		CardRevenueCents:  req.CardRevenueCents,
		FuelExpenseCents:  req.FuelExpenseCents,
		MeterPhotoRef:     req.MeterPhotoRef,
		FuelPhotoRef:      req.FuelPhotoRef,
	}
	if req.WorkDate != "" {
		workDate, err := time.Parse("2006-01-02", req.WorkDate)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("report.submit", "work_date must be YYYY-MM-DD"))
			return
		}
		params.WorkDate = workDate
	}

	result, err := h.reports.Submit(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := submitReportResponse{
		Report: renderReport(result.Report),
		Meter:  renderAttachResult(result.Meter),
	}
	if result.Fuel != nil {
		resp.Fuel = renderAttachResult(result.Fuel)
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	report, err := h.reports.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderReport(report))
}

// List handles GET /api/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repository.ReportFilter

	q := r.URL.Query()
	if v := q.Get("vehicle_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("report.list", "invalid vehicle_id"))
			return
		}
		filter.VehicleID = id
	}
	if v := q.Get("driver_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("report.list", "invalid driver_id"))
			return
		}
		filter.DriverID = id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("report.list", "from must be YYYY-MM-DD"))
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("report.list", "to must be YYYY-MM-DD"))
			return
		}
		filter.To = t
	}

	reports, err := h.reports.List(r.Context(), filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]reportJSON, 0, len(reports))
	for i := range reports {
		out = append(out, renderReport(&reports[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// ListEvidence handles GET /api/reports/{id}/evidence.
func (h *ReportHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	evidence, err := h.evidence.ListByReport(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]evidenceJSON, 0, len(evidence))
	for i := range evidence {
		out = append(out, renderEvidence(&evidence[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"evidence": out})
}
