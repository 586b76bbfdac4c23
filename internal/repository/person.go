package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const personColumns = `id, name, phone, role, owner_id, pin_hash, active, created_at`

func scanPerson(row interface{ Scan(...any) error }) (*domain.Person, error) {
	var p domain.Person
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Role, &p.OwnerID, &p.PINHash,
		&p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePerson registers an owner or driver.
func (q *Queries) CreatePerson(ctx context.Context, p domain.CreatePersonParams, pinHash string) (*domain.Person, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO persons (name, phone, role, owner_id, pin_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+personColumns,
		p.Name, p.Phone, p.Role, p.OwnerID, pinHash)
	return scanPerson(row)
}

// GetPersonByID fetches a single person.
func (q *Queries) GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	return scanPerson(row)
}

// GetPersonByPhone fetches a person by their chat-channel phone identity.
func (q *Queries) GetPersonByPhone(ctx context.Context, phone string) (*domain.Person, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE phone = $1 AND active`, phone)
	return scanPerson(row)
}

// GetOwnerOfDriver returns the owner assigned to a driver, or ErrNotFound
// when the driver has none.
func (q *Queries) GetOwnerOfDriver(ctx context.Context, driverID uuid.UUID) (*domain.Person, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT o.id, o.name, o.phone, o.role, o.owner_id, o.pin_hash, o.active, o.created_at
		FROM persons d
		JOIN persons o ON o.id = d.owner_id
		WHERE d.id = $1`, driverID)
	return scanPerson(row)
}

// AssignDriver gives a driver their single active vehicle assignment,
// deactivating any previous one in the same transaction.
func (q *Queries) AssignDriver(ctx context.Context, driverID, vehicleID uuid.UUID) (*domain.Assignment, error) {
	var a domain.Assignment

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE assignments SET active = FALSE
			WHERE driver_id = $1 AND active`, driverID)
		if err != nil {
			return fmt.Errorf("deactivate previous assignment: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO assignments (driver_id, vehicle_id)
			VALUES ($1, $2)
			RETURNING id, driver_id, vehicle_id, active, created_at`,
			driverID, vehicleID)
		return row.Scan(&a.ID, &a.DriverID, &a.VehicleID, &a.Active, &a.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveAssignment returns the vehicle a driver currently operates.
func (q *Queries) GetActiveAssignment(ctx context.Context, driverID uuid.UUID) (*domain.Assignment, error) {
	var a domain.Assignment
	err := q.db.QueryRowContext(ctx, `
		SELECT id, driver_id, vehicle_id, active, created_at
		FROM assignments WHERE driver_id = $1 AND active`, driverID).
		Scan(&a.ID, &a.DriverID, &a.VehicleID, &a.Active, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
