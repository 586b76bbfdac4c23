// This file implements the incident workflow: drivers raise incidents against
// their own reports, the assigned owner approves by closing, and a closed
// incident is what authorizes an evidence unlock.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/notify"
)

// IncidentService defines incident operations.
type IncidentService interface {
	// Raise opens an incident against a report. The actor must be the
	// report's driver and must have an assigned owner, who becomes the
	// approver.
	Raise(ctx context.Context, params domain.CreateIncidentParams) (*domain.Incident, error)

	// Close moves an incident to CLOSED. Only the assigned approver may
	// close, and closing an already-closed incident is a conflict.
	Close(ctx context.Context, incidentID, actorID uuid.UUID) (*domain.Incident, error)

	// GetByID retrieves an incident.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)

	// ListByApprover returns incidents assigned to an owner.
	ListByApprover(ctx context.Context, approverID uuid.UUID) ([]domain.Incident, error)
}

// incidentStore is the slice of the repository the service needs.
type incidentStore interface {
	CreateIncident(ctx context.Context, p domain.CreateIncidentParams, approverID uuid.UUID) (*domain.Incident, error)
	GetIncidentByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	CloseIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	ListIncidentsByApprover(ctx context.Context, approverID uuid.UUID) ([]domain.Incident, error)
	GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)
	GetOwnerOfDriver(ctx context.Context, driverID uuid.UUID) (*domain.Person, error)
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
}

type incidentService struct {
	store    incidentStore
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(store incidentStore, notifier *notify.Notifier, logger *slog.Logger) IncidentService {
	return &incidentService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *incidentService) Raise(ctx context.Context, params domain.CreateIncidentParams) (*domain.Incident, error) {
	const op = "incident.raise"

	if params.Description == "" {
		return nil, domain.Invalid(op, "description is required")
	}
	if params.Decision == "" {
		return nil, domain.Invalid(op, "decision is required")
	}
	if params.Justification == "" {
		return nil, domain.Invalid(op, "justification is required")
	}

	report, err := s.store.GetReportByID(ctx, params.ReportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", params.ReportID.String())
		}
		return nil, domain.Internal(err, op, "failed to load report")
	}
	if report.DriverID != params.DriverID {
		return nil, domain.Forbidden(op, "only the report's driver may raise an incident")
	}

	owner, err := s.store.GetOwnerOfDriver(ctx, params.DriverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.InvalidRule(op, domain.RuleIncidentNeedsOwner,
				"driver has no assigned owner to approve the incident")
		}
		return nil, domain.Internal(err, op, "failed to load owner")
	}

	incident, err := s.store.CreateIncident(ctx, params, owner.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store incident")
	}

	s.logger.Info("incident raised",
		"incident_id", incident.ID,
		"report_id", params.ReportID,
		"driver_id", params.DriverID,
		"approver_id", owner.ID)

	s.alertApprover(ctx, incident, report, owner)
	return incident, nil
}

// alertApprover sends the new-incident alert; failures are logged only.
func (s *incidentService) alertApprover(ctx context.Context, incident *domain.Incident, report *domain.DailyReport, owner *domain.Person) {
	driver, err := s.store.GetPersonByID(ctx, report.DriverID)
	if err != nil {
		s.logger.Warn("incident alert skipped, driver lookup failed",
			"incident_id", incident.ID, "error", err)
		return
	}
	plate := ""
	if vehicle, err := s.store.GetVehicleByID(ctx, report.VehicleID); err == nil {
		plate = vehicle.Plate
	}

	text := notify.IncidentAlert(driver.Name, plate, incident.Description)
	if err := s.notifier.Send(ctx, owner.Phone, text); err != nil {
		s.logger.Warn("incident alert delivery failed",
			"incident_id", incident.ID, "error", err)
	}
}

func (s *incidentService) Close(ctx context.Context, incidentID, actorID uuid.UUID) (*domain.Incident, error) {
	const op = "incident.close"

	incident, err := s.store.GetIncidentByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "incident", incidentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load incident")
	}

	if incident.ApproverID != actorID {
		return nil, domain.Forbidden(op, "only the assigned approver may close this incident")
	}
	if incident.Status == domain.IncidentStatusClosed {
		return nil, domain.Conflict(op, domain.RuleIncidentOwnerCloses, "incident is already closed")
	}

	closed, err := s.store.CloseIncident(ctx, incidentID)
	if err != nil {
		// The status guard in the update lost to a concurrent close.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Conflict(op, domain.RuleIncidentOwnerCloses, "incident is already closed")
		}
		return nil, domain.Internal(err, op, "failed to close incident")
	}

	s.logger.Info("incident closed",
		"incident_id", incidentID,
		"approver_id", actorID)
	return closed, nil
}

func (s *incidentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "incident.get"

	incident, err := s.store.GetIncidentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "incident", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load incident")
	}
	return incident, nil
}

func (s *incidentService) ListByApprover(ctx context.Context, approverID uuid.UUID) ([]domain.Incident, error) {
	const op = "incident.list"

	out, err := s.store.ListIncidentsByApprover(ctx, approverID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list incidents")
	}
	return out, nil
}
