// This file implements the maintenance scheduling engine: the daily sweep
// that transitions obligations and reminds owners, the resolve path that
// recomputes next-due values, and the learned per-vehicle frequency override.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/notify"
	"github.com/pilotos/fleetcore/internal/repository"
)

// MaintenanceService defines maintenance scheduling operations.
type MaintenanceService interface {
	// Sweep evaluates every tracked obligation once: due items go OVERDUE
	// (with an owner alert), approaching items send one reminder per
	// window, and resolved items whose window has reopened go back to
	// PENDING. Safe to run concurrently; each transition lands exactly
	// once.
	Sweep(ctx context.Context) (*SweepStats, error)

	// Resolve closes out an obligation: records the service, recomputes the
	// next-due values immediately, and optionally books the expense.
	Resolve(ctx context.Context, params domain.ResolveMaintenanceParams) (*domain.VehicleMaintenanceState, error)

	// LearnFrequency stores a vehicle-specific distance interval that
	// overrides the catalog default from the next resolution onward.
	LearnFrequency(ctx context.Context, stateID uuid.UUID, learnedKm int64) (*domain.VehicleMaintenanceState, error)

	// ListByVehicle returns a vehicle's obligations with their catalog
	// items.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error)

	// Upcoming returns the vehicle's obligations that are overdue or inside
	// the approaching window at the vehicle's current odometer.
	Upcoming(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error)

	// Catalog returns the obligation templates.
	Catalog(ctx context.Context) ([]domain.MaintenanceCatalogItem, error)
}

// SweepStats summarizes one sweep run.
type SweepStats struct {
	Evaluated int
	Overdue   int
	Reminded  int
	Reopened  int
}

// maintenanceStore is the slice of the repository the service needs.
type maintenanceStore interface {
	ListCatalog(ctx context.Context) ([]domain.MaintenanceCatalogItem, error)
	GetCatalogItem(ctx context.Context, id uuid.UUID) (*domain.MaintenanceCatalogItem, error)
	GetMaintenanceState(ctx context.Context, id uuid.UUID) (*domain.VehicleMaintenanceState, error)
	ListMaintenanceByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error)
	ListMaintenanceForSweep(ctx context.Context) ([]repository.SweepRow, error)
	MarkOverdue(ctx context.Context, stateID uuid.UUID) (bool, error)
	MarkPending(ctx context.Context, stateID uuid.UUID) (bool, error)
	MarkReminded(ctx context.Context, stateID uuid.UUID) (bool, error)
	ResolveMaintenance(ctx context.Context, u repository.ResolveMaintenanceUpdate) (*domain.VehicleMaintenanceState, error)
	SetLearnedFrequency(ctx context.Context, stateID uuid.UUID, learnedKm int64) (*domain.VehicleMaintenanceState, error)
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
}

// LookaheadConfig is the approaching-window configuration.
type LookaheadConfig struct {
	Km   int64
	Days int
}

type maintenanceService struct {
	store     maintenanceStore
	notifier  *notify.Notifier
	lookahead LookaheadConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(store maintenanceStore, notifier *notify.Notifier, lookahead LookaheadConfig, logger *slog.Logger) MaintenanceService {
	return &maintenanceService{
		store:     store,
		notifier:  notifier,
		lookahead: lookahead,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *maintenanceService) Sweep(ctx context.Context) (*SweepStats, error) {
	const op = "maintenance.sweep"

	rows, err := s.store.ListMaintenanceForSweep(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load maintenance states")
	}

	now := s.now()
	stats := &SweepStats{Evaluated: len(rows)}

	for _, row := range rows {
		state := row.State

		// A resolved obligation re-enters PENDING once it is due or falls
		// inside the look-ahead window again.
		if state.Status == domain.MaintenanceStatusResolved {
			reopened := state
			reopened.Status = domain.MaintenanceStatusPending
			if !state.IsDue(row.OdometerKm, now) &&
				!reopened.IsApproaching(row.OdometerKm, now, s.lookahead.Km, s.lookahead.Days) {
				continue
			}
			won, err := s.store.MarkPending(ctx, state.ID)
			if err != nil {
				s.logger.Error("sweep failed to reopen obligation",
					"state_id", state.ID, "error", err)
				continue
			}
			if won {
				stats.Reopened++
				metrics.MaintenanceTransitions.WithLabelValues(string(domain.MaintenanceStatusPending)).Inc()
			}
			state.Status = domain.MaintenanceStatusPending
			state.Reminded = false
		}

		if state.IsDue(row.OdometerKm, now) {
			won, err := s.store.MarkOverdue(ctx, state.ID)
			if err != nil {
				s.logger.Error("sweep failed to mark overdue",
					"state_id", state.ID, "error", err)
				continue
			}
			// Losing the transition means another sweep already sent the
			// alert.
			if won {
				stats.Overdue++
				metrics.MaintenanceTransitions.WithLabelValues(string(domain.MaintenanceStatusOverdue)).Inc()
				s.sendAlert(ctx, row, true)
			}
			continue
		}

		if state.IsApproaching(row.OdometerKm, now, s.lookahead.Km, s.lookahead.Days) && !state.Reminded {
			won, err := s.store.MarkReminded(ctx, state.ID)
			if err != nil {
				s.logger.Error("sweep failed to mark reminded",
					"state_id", state.ID, "error", err)
				continue
			}
			if won {
				stats.Reminded++
				s.sendAlert(ctx, row, false)
			}
		}
	}

	s.logger.Info("maintenance sweep complete",
		"evaluated", stats.Evaluated,
		"overdue", stats.Overdue,
		"reminded", stats.Reminded,
		"reopened", stats.Reopened)
	return stats, nil
}

func (s *maintenanceService) sendAlert(ctx context.Context, row repository.SweepRow, overdue bool) {
	text := notify.MaintenanceAlert(row.Plate, row.Item.Name, overdue)
	if err := s.notifier.Send(ctx, row.OwnerPhone, text); err != nil {
		metrics.NotificationsSent.WithLabelValues("maintenance", "failed").Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues("maintenance", "sent").Inc()
}

func (s *maintenanceService) Resolve(ctx context.Context, params domain.ResolveMaintenanceParams) (*domain.VehicleMaintenanceState, error) {
	const op = "maintenance.resolve"

	state, err := s.store.GetMaintenanceState(ctx, params.StateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "maintenance state", params.StateID.String())
		}
		return nil, domain.Internal(err, op, "failed to load maintenance state")
	}

	item, err := s.store.GetCatalogItem(ctx, state.CatalogItemID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load catalog item")
	}

	vehicle, err := s.store.GetVehicleByID(ctx, state.VehicleID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}

	performedKm := vehicle.OdometerKm
	if params.PerformedKm != nil {
		if *params.PerformedKm < 0 {
			return nil, domain.Invalid(op, "performed_km must not be negative")
		}
		performedKm = *params.PerformedKm
	}
	performedAt := s.now()
	if params.PerformedAt != nil {
		performedAt = *params.PerformedAt
	}

	nextKm, nextDate := domain.NextDue(item.Trigger, state.EffectiveIntervalKm(*item), performedKm, performedAt)

	update := repository.ResolveMaintenanceUpdate{
		StateID:     params.StateID,
		PerformedKm: performedKm,
		PerformedAt: performedAt,
		NextDueKm:   nextKm,
		NextDueDate: nextDate,
	}
	if params.ExpenseCents > 0 {
		update.Expense = &domain.CreateExpenseParams{
			VehicleID:   state.VehicleID,
			Kind:        domain.ExpenseKindMaintenance,
			Description: item.Name,
			AmountCents: params.ExpenseCents,
			InvoiceRef:  params.InvoiceRef,
			IncurredAt:  performedAt,
		}
	}

	resolved, err := s.store.ResolveMaintenance(ctx, update)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve maintenance")
	}

	metrics.MaintenanceTransitions.WithLabelValues(string(domain.MaintenanceStatusResolved)).Inc()
	s.logger.Info("maintenance resolved",
		"state_id", params.StateID,
		"item", item.Name,
		"performed_km", performedKm,
		"expense_cents", params.ExpenseCents)
	return resolved, nil
}

func (s *maintenanceService) LearnFrequency(ctx context.Context, stateID uuid.UUID, learnedKm int64) (*domain.VehicleMaintenanceState, error) {
	const op = "maintenance.learn"

	if learnedKm <= 0 {
		return nil, domain.InvalidRule(op, domain.RuleMaintenanceLearned, "learned_km must be positive")
	}

	state, err := s.store.SetLearnedFrequency(ctx, stateID, learnedKm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "maintenance state", stateID.String())
		}
		return nil, domain.Internal(err, op, "failed to store learned frequency")
	}

	s.logger.Info("learned maintenance frequency",
		"state_id", stateID,
		"learned_km", learnedKm)
	return state, nil
}

func (s *maintenanceService) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error) {
	const op = "maintenance.list"

	rows, err := s.store.ListMaintenanceByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list maintenance states")
	}
	return rows, nil
}

func (s *maintenanceService) Upcoming(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error) {
	const op = "maintenance.upcoming"

	vehicle, err := s.store.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "vehicle", vehicleID.String())
		}
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}

	rows, err := s.store.ListMaintenanceByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list maintenance states")
	}

	now := s.now()
	upcoming := make([]repository.MaintenanceStateRow, 0, len(rows))
	for _, row := range rows {
		if row.State.Status == domain.MaintenanceStatusOverdue ||
			row.State.IsApproaching(vehicle.OdometerKm, now, s.lookahead.Km, s.lookahead.Days) {
			upcoming = append(upcoming, row)
		}
	}
	return upcoming, nil
}

func (s *maintenanceService) Catalog(ctx context.Context) ([]domain.MaintenanceCatalogItem, error) {
	const op = "maintenance.catalog"

	items, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load catalog")
	}
	return items, nil
}
