package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const vehicleColumns = `id, owner_id, plate, make, model, odometer_km, active,
	created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(&v.ID, &v.OwnerID, &v.Plate, &v.Make, &v.Model,
		&v.OdometerKm, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle registers a vehicle.
func (q *Queries) CreateVehicle(ctx context.Context, p domain.CreateVehicleParams) (*domain.Vehicle, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO vehicles (owner_id, plate, make, model, odometer_km)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+vehicleColumns,
		p.OwnerID, p.Plate, p.Make, p.Model, p.OdometerKm)
	return scanVehicle(row)
}

// GetVehicleByID fetches a single vehicle.
func (q *Queries) GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	return scanVehicle(row)
}

// ListVehiclesByOwner returns all of an owner's vehicles.
func (q *Queries) ListVehiclesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Vehicle, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE owner_id = $1 ORDER BY plate`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// CorrectOdometer applies a manual odometer correction. The monotonic guard
// lives in the service; the GREATEST here protects against a racing report
// submission advancing the reading between check and write.
func (q *Queries) CorrectOdometer(ctx context.Context, id uuid.UUID, odometerKm int64) (*domain.Vehicle, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE vehicles
		SET odometer_km = GREATEST(odometer_km, $2), updated_at = now()
		WHERE id = $1
		RETURNING `+vehicleColumns, id, odometerKm)
	return scanVehicle(row)
}
