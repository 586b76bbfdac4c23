package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const stateColumns = `id, vehicle_id, catalog_item_id, last_km, last_date,
	next_due_km, next_due_date, learned_km, status, reminded, updated_at`

func scanState(row interface{ Scan(...any) error }) (*domain.VehicleMaintenanceState, error) {
	var s domain.VehicleMaintenanceState
	err := row.Scan(&s.ID, &s.VehicleID, &s.CatalogItemID, &s.LastKm, &s.LastDate,
		&s.NextDueKm, &s.NextDueDate, &s.LearnedKm, &s.Status, &s.Reminded, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListCatalog returns all maintenance catalog items.
func (q *Queries) ListCatalog(ctx context.Context) ([]domain.MaintenanceCatalogItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, trigger_kind, interval_km, interval_months
		FROM maintenance_catalog ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MaintenanceCatalogItem
	for rows.Next() {
		var item domain.MaintenanceCatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Trigger.Kind,
			&item.Trigger.IntervalKm, &item.Trigger.IntervalMonths); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetCatalogItem fetches one catalog item.
func (q *Queries) GetCatalogItem(ctx context.Context, id uuid.UUID) (*domain.MaintenanceCatalogItem, error) {
	var item domain.MaintenanceCatalogItem
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, trigger_kind, interval_km, interval_months
		FROM maintenance_catalog WHERE id = $1`, id).
		Scan(&item.ID, &item.Name, &item.Trigger.Kind,
			&item.Trigger.IntervalKm, &item.Trigger.IntervalMonths)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// BootstrapVehicleMaintenance creates a PENDING state row for every catalog
// item the vehicle does not have yet. Called when a vehicle is registered.
func (q *Queries) BootstrapVehicleMaintenance(ctx context.Context, vehicleID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO vehicle_maintenance (vehicle_id, catalog_item_id)
		SELECT $1, c.id FROM maintenance_catalog c
		ON CONFLICT (vehicle_id, catalog_item_id) DO NOTHING`, vehicleID)
	return err
}

// GetMaintenanceState fetches one per-vehicle obligation state.
func (q *Queries) GetMaintenanceState(ctx context.Context, id uuid.UUID) (*domain.VehicleMaintenanceState, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM vehicle_maintenance WHERE id = $1`, id)
	return scanState(row)
}

// MaintenanceStateRow pairs a state with its catalog item.
type MaintenanceStateRow struct {
	State domain.VehicleMaintenanceState
	Item  domain.MaintenanceCatalogItem
}

// ListMaintenanceByVehicle returns all obligation states for a vehicle with
// their catalog items.
func (q *Queries) ListMaintenanceByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]MaintenanceStateRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.vehicle_id, m.catalog_item_id, m.last_km, m.last_date,
			m.next_due_km, m.next_due_date, m.learned_km, m.status, m.reminded,
			m.updated_at,
			c.id, c.name, c.trigger_kind, c.interval_km, c.interval_months
		FROM vehicle_maintenance m
		JOIN maintenance_catalog c ON c.id = m.catalog_item_id
		WHERE m.vehicle_id = $1
		ORDER BY c.name`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaintenanceStateRow
	for rows.Next() {
		var r MaintenanceStateRow
		err := rows.Scan(&r.State.ID, &r.State.VehicleID, &r.State.CatalogItemID,
			&r.State.LastKm, &r.State.LastDate, &r.State.NextDueKm,
			&r.State.NextDueDate, &r.State.LearnedKm, &r.State.Status,
			&r.State.Reminded, &r.State.UpdatedAt,
			&r.Item.ID, &r.Item.Name, &r.Item.Trigger.Kind,
			&r.Item.Trigger.IntervalKm, &r.Item.Trigger.IntervalMonths)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SweepRow is everything the daily sweep needs for one obligation: the state,
// its catalog item, and the owning vehicle's odometer, plate and owner phone.
type SweepRow struct {
	State      domain.VehicleMaintenanceState
	Item       domain.MaintenanceCatalogItem
	OdometerKm int64
	Plate      string
	OwnerPhone string
}

// ListMaintenanceForSweep returns all non-overdue obligation states of active
// vehicles, joined with what the sweep needs to evaluate and notify them.
func (q *Queries) ListMaintenanceForSweep(ctx context.Context) ([]SweepRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.vehicle_id, m.catalog_item_id, m.last_km, m.last_date,
			m.next_due_km, m.next_due_date, m.learned_km, m.status, m.reminded,
			m.updated_at,
			c.id, c.name, c.trigger_kind, c.interval_km, c.interval_months,
			v.odometer_km, v.plate, o.phone
		FROM vehicle_maintenance m
		JOIN maintenance_catalog c ON c.id = m.catalog_item_id
		JOIN vehicles v ON v.id = m.vehicle_id
		JOIN persons o ON o.id = v.owner_id
		WHERE v.active AND m.status <> 'OVERDUE'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SweepRow
	for rows.Next() {
		var r SweepRow
		err := rows.Scan(&r.State.ID, &r.State.VehicleID, &r.State.CatalogItemID,
			&r.State.LastKm, &r.State.LastDate, &r.State.NextDueKm,
			&r.State.NextDueDate, &r.State.LearnedKm, &r.State.Status,
			&r.State.Reminded, &r.State.UpdatedAt,
			&r.Item.ID, &r.Item.Name, &r.Item.Trigger.Kind,
			&r.Item.Trigger.IntervalKm, &r.Item.Trigger.IntervalMonths,
			&r.OdometerKm, &r.Plate, &r.OwnerPhone)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkOverdue transitions a state to OVERDUE and reports whether this call
// performed the transition. The WHERE guard makes the operation idempotent:
// a concurrent or repeated sweep sees zero rows affected and sends nothing.
func (q *Queries) MarkOverdue(ctx context.Context, stateID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE vehicle_maintenance
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2`,
		stateID, domain.MaintenanceStatusOverdue)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkPending opens a fresh PENDING window on a resolved state, clearing the
// reminder flag. Idempotent the same way MarkOverdue is.
func (q *Queries) MarkPending(ctx context.Context, stateID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE vehicle_maintenance
		SET status = $2, reminded = FALSE, updated_at = now()
		WHERE id = $1 AND status = $3`,
		stateID, domain.MaintenanceStatusPending, domain.MaintenanceStatusResolved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkReminded records that the approaching reminder for the current window
// went out. Reports whether this call won the flag.
func (q *Queries) MarkReminded(ctx context.Context, stateID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE vehicle_maintenance
		SET reminded = TRUE, updated_at = now()
		WHERE id = $1 AND NOT reminded`, stateID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResolveMaintenanceUpdate is the full effect of resolving an obligation.
type ResolveMaintenanceUpdate struct {
	StateID     uuid.UUID
	PerformedKm int64
	PerformedAt time.Time
	NextDueKm   *int64
	NextDueDate *time.Time
	Expense     *domain.CreateExpenseParams // nil when no expense is recorded
}

// ResolveMaintenance records the service, recomputed next-due values and the
// optional expense in one transaction.
func (q *Queries) ResolveMaintenance(ctx context.Context, u ResolveMaintenanceUpdate) (*domain.VehicleMaintenanceState, error) {
	var state *domain.VehicleMaintenanceState

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE vehicle_maintenance
			SET last_km = $2, last_date = $3, next_due_km = $4,
				next_due_date = $5, status = $6, reminded = FALSE,
				updated_at = now()
			WHERE id = $1
			RETURNING `+stateColumns,
			u.StateID, u.PerformedKm, u.PerformedAt, u.NextDueKm, u.NextDueDate,
			domain.MaintenanceStatusResolved)

		var err error
		state, err = scanState(row)
		if err != nil {
			return fmt.Errorf("resolve maintenance: %w", err)
		}

		if u.Expense == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO expenses (vehicle_id, kind, description, amount_cents,
				invoice_ref, incurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			u.Expense.VehicleID, u.Expense.Kind, u.Expense.Description,
			u.Expense.AmountCents, u.Expense.InvoiceRef, u.Expense.IncurredAt)
		if err != nil {
			return fmt.Errorf("record expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SetLearnedFrequency stores the vehicle-specific distance override without
// touching the current next-due values.
func (q *Queries) SetLearnedFrequency(ctx context.Context, stateID uuid.UUID, learnedKm int64) (*domain.VehicleMaintenanceState, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE vehicle_maintenance
		SET learned_km = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+stateColumns, stateID, learnedKm)
	return scanState(row)
}
