package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

// ReportUniqueConstraint is the unique key enforcing one report per
// (vehicle, work date). Concurrent submissions for the same pair race on this
// constraint; the database guarantees exactly one winner.
const ReportUniqueConstraint = "daily_reports_vehicle_work_date_key"

const reportColumns = `id, vehicle_id, driver_id, work_date, start_odometer_km,
	end_odometer_km, total_revenue_cents, card_revenue_cents,
	fuel_expense_cents, status, created_at`

func scanReport(row interface{ Scan(...any) error }) (*domain.DailyReport, error) {
	var r domain.DailyReport
	err := row.Scan(&r.ID, &r.VehicleID, &r.DriverID, &r.WorkDate,
		&r.StartOdometerKm, &r.EndOdometerKm, &r.TotalRevenueCents,
		&r.CardRevenueCents, &r.FuelExpenseCents, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReport inserts a daily report and advances the vehicle odometer to
// the report's end reading in the same transaction. The odometer never moves
// backwards; the GREATEST guard covers a concurrent submission that already
// advanced it further.
func (q *Queries) CreateReport(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error) {
	var report *domain.DailyReport

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO daily_reports (vehicle_id, driver_id, work_date,
				start_odometer_km, end_odometer_km, total_revenue_cents,
				card_revenue_cents, fuel_expense_cents, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+reportColumns,
			p.VehicleID, p.DriverID, p.WorkDate, p.StartOdometerKm,
			p.EndOdometerKm, p.TotalRevenueCents, p.CardRevenueCents,
			p.FuelExpenseCents, domain.ReportStatusSubmitted)

		var err error
		report, err = scanReport(row)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE vehicles
			SET odometer_km = GREATEST(odometer_km, $2), updated_at = now()
			WHERE id = $1`,
			p.VehicleID, p.EndOdometerKm)
		if err != nil {
			return fmt.Errorf("advance odometer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetReportByID fetches a single report.
func (q *Queries) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM daily_reports WHERE id = $1`, id)
	return scanReport(row)
}

// ReportFilter narrows ListReports. Zero values mean "no filter".
type ReportFilter struct {
	VehicleID uuid.UUID
	DriverID  uuid.UUID
	From      time.Time
	To        time.Time
}

// ListReports returns reports matching the filter, newest work date first.
func (q *Queries) ListReports(ctx context.Context, f ReportFilter) ([]domain.DailyReport, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE 1=1`
	args := []any{}

	if f.VehicleID != uuid.Nil {
		args = append(args, f.VehicleID)
		query += fmt.Sprintf(" AND vehicle_id = $%d", len(args))
	}
	if f.DriverID != uuid.Nil {
		args = append(args, f.DriverID)
		query += fmt.Sprintf(" AND driver_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND work_date >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND work_date <= $%d", len(args))
	}
	query += " ORDER BY work_date DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.DailyReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}
