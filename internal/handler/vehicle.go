// This file implements the vehicle, expense and monthly export endpoints.
//
// Routes:
//   - POST /api/vehicles                   -> Create
//   - GET  /api/vehicles/{id}               -> Get
//   - GET  /api/owners/{id}/vehicles        -> ListByOwner
//   - POST /api/vehicles/{id}/odometer      -> CorrectOdometer
//   - POST /api/vehicles/{id}/expenses      -> CreateExpense
//   - GET  /api/vehicles/{id}/expenses      -> ListExpenses (from, to)
//   - GET  /api/vehicles/{id}/export        -> MonthlyExport (year, month)
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
)

// VehicleHandler handles vehicle requests.
type VehicleHandler struct {
	vehicles service.VehicleService
	expenses service.ExpenseService
	exports  service.ExportService
	logger   *slog.Logger
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicles service.VehicleService, expenses service.ExpenseService, exports service.ExportService, logger *slog.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		expenses: expenses,
		exports:  exports,
		logger:   logger,
	}
}

// RegisterRoutes registers vehicle routes on the provided mux.
func (h *VehicleHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/vehicles", h.Create)
	mux.HandleFunc("GET /api/vehicles/{id}", h.Get)
	mux.HandleFunc("GET /api/owners/{id}/vehicles", h.ListByOwner)
	mux.HandleFunc("POST /api/vehicles/{id}/odometer", h.CorrectOdometer)
	mux.HandleFunc("POST /api/vehicles/{id}/expenses", h.CreateExpense)
	mux.HandleFunc("GET /api/vehicles/{id}/expenses", h.ListExpenses)
	mux.HandleFunc("GET /api/vehicles/{id}/export", h.MonthlyExport)
}

type createVehicleRequest struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	Plate      string    `json:"plate"`
	Make       string    `json:"make"`
	Model      string    `json:"model"`
	OdometerKm int64     `json:"odometer_km"`
}

type vehicleJSON struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Plate      string    `json:"plate"`
	Make       string    `json:"make,omitempty"`
	Model      string    `json:"model,omitempty"`
	OdometerKm int64     `json:"odometer_km"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func renderVehicle(v *domain.Vehicle) vehicleJSON {
	return vehicleJSON{
		ID:         v.ID,
		OwnerID:    v.OwnerID,
		Plate:      v.Plate,
		Make:       v.Make,
		Model:      v.Model,
		OdometerKm: v.OdometerKm,
		Active:     v.Active,
		CreatedAt:  v.CreatedAt,
	}
}

// Create handles POST /api/vehicles.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.Create(r.Context(), domain.CreateVehicleParams{
		OwnerID:    req.OwnerID,
		Plate:      req.Plate,
		Make:       req.Make,
		Model:      req.Model,
		OdometerKm: req.OdometerKm,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderVehicle(vehicle))
}

// Get handles GET /api/vehicles/{id}.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderVehicle(vehicle))
}

// ListByOwner handles GET /api/owners/{id}/vehicles.
func (h *VehicleHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vehicles, err := h.vehicles.ListByOwner(r.Context(), ownerID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]vehicleJSON, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, renderVehicle(&vehicles[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"vehicles": out})
}

type correctOdometerRequest struct {
	OdometerKm int64 `json:"odometer_km"`
}

// CorrectOdometer handles POST /api/vehicles/{id}/odometer.
func (h *VehicleHandler) CorrectOdometer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req correctOdometerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.CorrectOdometer(r.Context(), id, req.OdometerKm)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderVehicle(vehicle))
}

type createExpenseRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	InvoiceRef  string `json:"invoice_ref"`
	IncurredAt  string `json:"incurred_at"` // YYYY-MM-DD, defaults to today
}

type expenseJSON struct {
	ID          uuid.UUID `json:"id"`
	VehicleID   uuid.UUID `json:"vehicle_id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	InvoiceRef  string    `json:"invoice_ref,omitempty"`
	IncurredAt  string    `json:"incurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func renderExpense(e *domain.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		VehicleID:   e.VehicleID,
		Kind:        string(e.Kind),
		Description: e.Description,
		AmountCents: e.AmountCents,
		InvoiceRef:  e.InvoiceRef,
		IncurredAt:  e.IncurredAt.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt,
	}
}

// CreateExpense handles POST /api/vehicles/{id}/expenses.
func (h *VehicleHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.CreateExpenseParams{
		VehicleID:   vehicleID,
		Kind:        domain.ExpenseKind(req.Kind),
		Description: req.Description,
		AmountCents: req.AmountCents,
		InvoiceRef:  req.InvoiceRef,
	}
	if req.IncurredAt != "" {
		incurred, err := time.Parse("2006-01-02", req.IncurredAt)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("expense.create", "incurred_at must be YYYY-MM-DD"))
			return
		}
		params.IncurredAt = incurred
	}

	expense, err := h.expenses.Create(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderExpense(expense))
}

// ListExpenses handles GET /api/vehicles/{id}/expenses.
func (h *VehicleHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("expense.list", "from must be YYYY-MM-DD"))
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("expense.list", "to must be YYYY-MM-DD"))
			return
		}
	}

	expenses, err := h.expenses.ListByVehicle(r.Context(), vehicleID, from, to)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]expenseJSON, 0, len(expenses))
	for i := range expenses {
		out = append(out, renderExpense(&expenses[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

// MonthlyExport handles GET /api/vehicles/{id}/export. Streams the generated
// workbook back as an attachment.
func (h *VehicleHandler) MonthlyExport(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2200 {
		ErrorResponse(w, r, h.logger, domain.Invalid("export.monthly", "year is required"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		ErrorResponse(w, r, h.logger, domain.Invalid("export.monthly", "month must be 1-12"))
		return
	}

	data, key, err := h.exports.Monthly(r.Context(), vehicleID, year, time.Month(month))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%04d-%02d.xlsx", year, month)))
	w.Header().Set("X-Storage-Key", key)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
