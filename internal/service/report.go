// This file implements the daily operating report pipeline: gate, validate,
// persist, then run the evidence photos through OCR.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/repository"
)

// ReportService defines daily-report operations.
type ReportService interface {
	// Submit validates and stores a new daily report, then attaches its
	// evidence photos. Reports are immutable once accepted.
	// Returns domain.EGATED when the driver has unresolved pending tasks,
	// a *domain.ValidationError listing every broken rule, and
	// domain.ECONFLICT when a report already exists for the vehicle and
	// work date.
	Submit(ctx context.Context, params domain.CreateReportParams) (*SubmitResult, error)

	// GetByID retrieves a report.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)

	// List returns reports matching the filter, newest first.
	List(ctx context.Context, filter repository.ReportFilter) ([]domain.DailyReport, error)
}

// SubmitResult is what a submission reports back: the stored report and the
// outcome of each evidence photo. A photo that came back illegible carries
// the pending task now blocking the driver.
type SubmitResult struct {
	Report *domain.DailyReport
	Meter  *AttachResult
	Fuel   *AttachResult // nil when no fuel was purchased
}

// reportStore is the slice of the repository the service needs.
type reportStore interface {
	CreateReport(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error)
	GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)
	ListReports(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error)
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
}

type reportService struct {
	store    reportStore
	gate     *TaskGate
	evidence EvidenceService
	logger   *slog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(store reportStore, gate *TaskGate, evidence EvidenceService, logger *slog.Logger) ReportService {
	return &reportService{
		store:    store,
		gate:     gate,
		evidence: evidence,
		logger:   logger,
	}
}

func (s *reportService) Submit(ctx context.Context, params domain.CreateReportParams) (*SubmitResult, error) {
	const op = "report.submit"

	if err := s.gate.Check(ctx, op, params.DriverID); err != nil {
		metrics.ReportsRejected.WithLabelValues("gated").Inc()
		return nil, err
	}

	vehicle, err := s.store.GetVehicleByID(ctx, params.VehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "vehicle", params.VehicleID.String())
		}
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}

	params.WorkDate = domain.NormalizeWorkDate(params.WorkDate)

	if err := domain.ValidateReport(params, vehicle.OdometerKm); err != nil {
		metrics.ReportsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	if params.MeterPhotoRef == "" {
		metrics.ReportsRejected.WithLabelValues("validation").Inc()
		return nil, domain.InvalidRule(op, domain.RuleReportFieldsRequired, "meter_photo_ref is required")
	}

	report, err := s.store.CreateReport(ctx, params)
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ReportUniqueConstraint) {
			metrics.ReportsRejected.WithLabelValues("duplicate").Inc()
			return nil, domain.Conflict(op, domain.RuleReportUniquePerDay,
				"a report already exists for this vehicle and work date")
		}
		return nil, domain.Internal(err, op, "failed to store report")
	}

	metrics.ReportsSubmitted.Inc()
	s.logger.Info("report submitted",
		"report_id", report.ID,
		"vehicle_id", report.VehicleID,
		"driver_id", report.DriverID,
		"work_date", report.WorkDate.Format("2006-01-02"))

	result := &SubmitResult{Report: report}

	// The report is already committed; evidence problems surface as pending
	// tasks on the driver, never as submission failures.
	result.Meter, err = s.evidence.AttachCleared(ctx, report.ID, report.DriverID,
		domain.EvidenceKindMeter, params.MeterPhotoRef)
	if err != nil {
		return nil, err
	}

	if params.FuelPhotoRef != "" {
		result.Fuel, err = s.evidence.AttachCleared(ctx, report.ID, report.DriverID,
			domain.EvidenceKindFuel, params.FuelPhotoRef)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *reportService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
	const op = "report.get"

	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load report")
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, filter repository.ReportFilter) ([]domain.DailyReport, error) {
	const op = "report.list"

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reports")
	}
	return reports, nil
}
