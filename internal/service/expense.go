// This file implements standalone vehicle expense bookkeeping. Maintenance
// resolutions book their expense inside the resolve transaction; this covers
// everything else.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
)

// ExpenseService defines expense operations.
type ExpenseService interface {
	// Create records a vehicle expense.
	Create(ctx context.Context, params domain.CreateExpenseParams) (*domain.Expense, error)

	// ListByVehicle returns a vehicle's expenses within [from, to).
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Expense, error)
}

// expenseStore is the slice of the repository the service needs.
type expenseStore interface {
	CreateExpense(ctx context.Context, p domain.CreateExpenseParams) (*domain.Expense, error)
	ListExpensesByVehicle(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Expense, error)
}

type expenseService struct {
	store  expenseStore
	logger *slog.Logger
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store expenseStore, logger *slog.Logger) ExpenseService {
	return &expenseService{store: store, logger: logger}
}

func (s *expenseService) Create(ctx context.Context, params domain.CreateExpenseParams) (*domain.Expense, error) {
	const op = "expense.create"

	if !params.Kind.IsValid() {
		return nil, domain.Invalid(op, "unknown expense kind")
	}
	if params.AmountCents <= 0 {
		return nil, domain.Invalid(op, "amount_cents must be positive")
	}
	if params.IncurredAt.IsZero() {
		params.IncurredAt = time.Now()
	}

	expense, err := s.store.CreateExpense(ctx, params)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, domain.NotFound(op, "vehicle", params.VehicleID.String())
		}
		return nil, domain.Internal(err, op, "failed to store expense")
	}

	s.logger.Info("expense recorded",
		"expense_id", expense.ID,
		"vehicle_id", expense.VehicleID,
		"kind", expense.Kind,
		"amount_cents", expense.AmountCents)
	return expense, nil
}

func (s *expenseService) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Expense, error) {
	const op = "expense.list"

	out, err := s.store.ListExpensesByVehicle(ctx, vehicleID, from, to)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list expenses")
	}
	return out, nil
}
