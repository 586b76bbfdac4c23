// This file implements person registration, chat PIN verification and
// driver-to-vehicle assignment endpoints.
//
// Routes:
//   - POST /api/people                      -> Create
//   - GET  /api/people/{id}                  -> Get
//   - POST /api/people/{id}/assignment       -> Assign
//   - GET  /api/people/{id}/assignment       -> ActiveAssignment
//   - POST /api/auth/pin                     -> VerifyPIN
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
)

// PersonHandler handles person requests.
type PersonHandler struct {
	people service.PersonService
	logger *slog.Logger
}

// NewPersonHandler creates a new PersonHandler.
func NewPersonHandler(people service.PersonService, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{people: people, logger: logger}
}

// RegisterRoutes registers person routes on the provided mux.
func (h *PersonHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/people", h.Create)
	mux.HandleFunc("GET /api/people/{id}", h.Get)
	mux.HandleFunc("POST /api/people/{id}/assignment", h.Assign)
	mux.HandleFunc("GET /api/people/{id}/assignment", h.ActiveAssignment)
	mux.HandleFunc("POST /api/auth/pin", h.VerifyPIN)
}

type createPersonRequest struct {
	Name    string     `json:"name"`
	Phone   string     `json:"phone"`
	Role    string     `json:"role"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
	PIN     string     `json:"pin"`
}

// personJSON never carries the PIN hash.
type personJSON struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

func renderPerson(p *domain.Person) personJSON {
	return personJSON{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Role:      string(p.Role),
		OwnerID:   p.OwnerID,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

// Create handles POST /api/people.
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	person, err := h.people.Create(r.Context(), domain.CreatePersonParams{
		Name:    req.Name,
		Phone:   req.Phone,
		Role:    domain.Role(req.Role),
		OwnerID: req.OwnerID,
		PIN:     req.PIN,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderPerson(person))
}

// Get handles GET /api/people/{id}.
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	person, err := h.people.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderPerson(person))
}

type assignRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
}

type assignmentJSON struct {
	ID        uuid.UUID `json:"id"`
	DriverID  uuid.UUID `json:"driver_id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func renderAssignment(a *domain.Assignment) assignmentJSON {
	return assignmentJSON{
		ID:        a.ID,
		DriverID:  a.DriverID,
		VehicleID: a.VehicleID,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// Assign handles POST /api/people/{id}/assignment.
func (h *PersonHandler) Assign(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	assignment, err := h.people.Assign(r.Context(), driverID, req.VehicleID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderAssignment(assignment))
}

// ActiveAssignment handles GET /api/people/{id}/assignment.
func (h *PersonHandler) ActiveAssignment(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	assignment, err := h.people.ActiveAssignment(r.Context(), driverID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderAssignment(assignment))
}

type verifyPINRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// VerifyPIN handles POST /api/auth/pin.
func (h *PersonHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	person, err := h.people.VerifyPIN(r.Context(), req.Phone, req.PIN)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderPerson(person))
}
