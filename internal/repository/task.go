package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const taskColumns = `id, driver_id, kind, entity_id, resolved, resolved_at, created_at`

func scanTask(row interface{ Scan(...any) error }) (*domain.PendingTask, error) {
	var t domain.PendingTask
	err := row.Scan(&t.ID, &t.DriverID, &t.Kind, &t.EntityID, &t.Resolved,
		&t.ResolvedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindUnresolvedTaskByDriver returns the oldest unresolved task for a driver,
// or nil when the driver is unblocked.
func (q *Queries) FindUnresolvedTaskByDriver(ctx context.Context, driverID uuid.UUID) (*domain.PendingTask, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM pending_tasks
		WHERE driver_id = $1 AND NOT resolved
		ORDER BY created_at LIMIT 1`, driverID)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTaskByID fetches a single pending task.
func (q *Queries) GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.PendingTask, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM pending_tasks WHERE id = $1`, id)
	return scanTask(row)
}

// ResolveTask manually clears a pending task (operator action).
func (q *Queries) ResolveTask(ctx context.Context, id uuid.UUID) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE pending_tasks SET resolved = TRUE, resolved_at = now()
		WHERE id = $1 AND NOT resolved`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTasksByDriver returns all tasks for a driver, unresolved first.
func (q *Queries) ListTasksByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.PendingTask, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM pending_tasks
		WHERE driver_id = $1 ORDER BY resolved, created_at DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PendingTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
