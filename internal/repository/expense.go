package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const expenseColumns = `id, vehicle_id, kind, description, amount_cents, invoice_ref, incurred_at, created_at`

func scanExpense(row interface{ Scan(...any) error }) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(&e.ID, &e.VehicleID, &e.Kind, &e.Description,
		&e.AmountCents, &e.InvoiceRef, &e.IncurredAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense records a standalone vehicle expense.
func (q *Queries) CreateExpense(ctx context.Context, p domain.CreateExpenseParams) (*domain.Expense, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO expenses (vehicle_id, kind, description, amount_cents, invoice_ref, incurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+expenseColumns,
		p.VehicleID, p.Kind, p.Description, p.AmountCents, p.InvoiceRef, p.IncurredAt)
	return scanExpense(row)
}

// ListExpensesByVehicle returns expenses for a vehicle within [from, to),
// newest first.
func (q *Queries) ListExpensesByVehicle(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Expense, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE vehicle_id = $1 AND incurred_at >= $2 AND incurred_at < $3
		ORDER BY incurred_at DESC`, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// MonthlyExpenseTotal sums expense amounts for a vehicle within [from, to).
func (q *Queries) MonthlyExpenseTotal(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		WHERE vehicle_id = $1 AND incurred_at >= $2 AND incurred_at < $3`,
		vehicleID, from, to).Scan(&total)
	return total, err
}
