// This file implements the anomaly accumulator: anomalies are append-only,
// and the owner is notified on every critical anomaly and at every exact
// multiple of the accumulation threshold.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/notify"
	"github.com/pilotos/fleetcore/internal/repository"
)

// AnomalyService defines anomaly accumulator operations.
type AnomalyService interface {
	// Record appends an anomaly to the driver's log and fires the owner
	// notification when an escalation rule applies. Notification failures
	// never fail the write.
	Record(ctx context.Context, params domain.CreateAnomalyParams) (*domain.AnomalyRecordResult, error)

	// ListByDriver returns a driver's anomalies, newest first.
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Anomaly, error)

	// CountByDriver returns a driver's all-time anomaly total.
	CountByDriver(ctx context.Context, driverID uuid.UUID) (int, error)
}

// anomalyStore is the slice of the repository the service needs.
type anomalyStore interface {
	CreateAnomaly(ctx context.Context, p domain.CreateAnomalyParams) (*domain.Anomaly, int, error)
	CountAnomaliesByDriver(ctx context.Context, driverID uuid.UUID) (int, error)
	MarkAnomalyNotified(ctx context.Context, id uuid.UUID) error
	ListAnomaliesByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Anomaly, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)
	GetOwnerOfDriver(ctx context.Context, driverID uuid.UUID) (*domain.Person, error)
}

type anomalyService struct {
	store     anomalyStore
	notifier  *notify.Notifier
	threshold int
	logger    *slog.Logger
}

// NewAnomalyService creates a new AnomalyService. threshold is the
// accumulation step at which minor anomalies escalate to the owner.
func NewAnomalyService(store anomalyStore, notifier *notify.Notifier, threshold int, logger *slog.Logger) AnomalyService {
	return &anomalyService{
		store:     store,
		notifier:  notifier,
		threshold: threshold,
		logger:    logger,
	}
}

func (s *anomalyService) Record(ctx context.Context, params domain.CreateAnomalyParams) (*domain.AnomalyRecordResult, error) {
	const op = "anomaly.record"

	if !params.Severity.IsValid() {
		return nil, domain.Invalid(op, "unknown anomaly severity")
	}
	if params.Description == "" {
		return nil, domain.Invalid(op, "description is required")
	}

	anomaly, total, err := s.store.CreateAnomaly(ctx, params)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, domain.NotFound(op, "driver", params.DriverID.String())
		}
		return nil, domain.Internal(err, op, "failed to record anomaly")
	}

	metrics.AnomaliesRecorded.WithLabelValues(string(params.Severity)).Inc()

	result := &domain.AnomalyRecordResult{
		Anomaly: anomaly,
		Total:   total,
		Rule:    domain.AnomalyNotifyRule(params.Severity, total, s.threshold),
	}

	s.logger.Info("anomaly recorded",
		"anomaly_id", anomaly.ID,
		"driver_id", params.DriverID,
		"severity", params.Severity,
		"total", total,
		"rule", result.Rule)

	if result.Rule == domain.NotifyRuleNone {
		return result, nil
	}

	result.Notified = s.notifyOwner(ctx, anomaly, total)
	return result, nil
}

// notifyOwner sends the escalation and records delivery on the anomaly.
// Every failure is logged and swallowed.
func (s *anomalyService) notifyOwner(ctx context.Context, anomaly *domain.Anomaly, total int) bool {
	owner, err := s.store.GetOwnerOfDriver(ctx, anomaly.DriverID)
	if err != nil {
		s.logger.Warn("anomaly escalation skipped, driver has no owner",
			"driver_id", anomaly.DriverID,
			"error", err)
		metrics.NotificationsSent.WithLabelValues("anomaly", "skipped").Inc()
		return false
	}

	driver, err := s.store.GetPersonByID(ctx, anomaly.DriverID)
	if err != nil {
		s.logger.Warn("anomaly escalation skipped, driver lookup failed",
			"driver_id", anomaly.DriverID,
			"error", err)
		metrics.NotificationsSent.WithLabelValues("anomaly", "skipped").Inc()
		return false
	}

	text := notify.AnomalyAlert(driver.Name, total, anomaly.Description)
	if err := s.notifier.Send(ctx, owner.Phone, text); err != nil {
		metrics.NotificationsSent.WithLabelValues("anomaly", "failed").Inc()
		return false
	}
	metrics.NotificationsSent.WithLabelValues("anomaly", "sent").Inc()

	if err := s.store.MarkAnomalyNotified(ctx, anomaly.ID); err != nil {
		s.logger.Warn("failed to mark anomaly notified",
			"anomaly_id", anomaly.ID,
			"error", err)
	}
	return true
}

func (s *anomalyService) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Anomaly, error) {
	const op = "anomaly.list"

	out, err := s.store.ListAnomaliesByDriver(ctx, driverID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list anomalies")
	}
	return out, nil
}

func (s *anomalyService) CountByDriver(ctx context.Context, driverID uuid.UUID) (int, error) {
	const op = "anomaly.count"

	total, err := s.store.CountAnomaliesByDriver(ctx, driverID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count anomalies")
	}
	return total, nil
}
