package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const anomalyColumns = `id, driver_id, severity, description, notified, created_at`

func scanAnomaly(row interface{ Scan(...any) error }) (*domain.Anomaly, error) {
	var a domain.Anomaly
	err := row.Scan(&a.ID, &a.DriverID, &a.Severity, &a.Description, &a.Notified, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnomaly appends one anomaly to the driver's log and returns it along
// with the new all-time total. The count is taken in the same transaction as
// the insert, so the returned total always includes the new row. Anomalies
// are never updated or deleted; the log is the source of truth for the count.
func (q *Queries) CreateAnomaly(ctx context.Context, p domain.CreateAnomalyParams) (*domain.Anomaly, int, error) {
	var anomaly *domain.Anomaly
	var total int

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO anomalies (driver_id, severity, description)
			VALUES ($1, $2, $3)
			RETURNING `+anomalyColumns,
			p.DriverID, p.Severity, p.Description)

		var err error
		anomaly, err = scanAnomaly(row)
		if err != nil {
			return fmt.Errorf("insert anomaly: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM anomalies WHERE driver_id = $1`,
			p.DriverID).Scan(&total)
		if err != nil {
			return fmt.Errorf("count anomalies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return anomaly, total, nil
}

// CountAnomaliesByDriver returns the driver's all-time anomaly total.
func (q *Queries) CountAnomaliesByDriver(ctx context.Context, driverID uuid.UUID) (int, error) {
	var total int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM anomalies WHERE driver_id = $1`, driverID).Scan(&total)
	return total, err
}

// MarkAnomalyNotified records that the owner notification for this anomaly
// was delivered. The flag is independent of the anomaly write itself.
func (q *Queries) MarkAnomalyNotified(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE anomalies SET notified = TRUE WHERE id = $1`, id)
	return err
}

// ListAnomaliesByDriver returns a driver's anomalies, newest first.
func (q *Queries) ListAnomaliesByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Anomaly, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+anomalyColumns+` FROM anomalies
		WHERE driver_id = $1 ORDER BY created_at DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
