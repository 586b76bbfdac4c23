package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a fleet vehicle. The odometer reading is monotonic: it only
// advances, either through an accepted daily report or a manual correction.
type Vehicle struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Plate      string
	Make       string
	Model      string
	OdometerKm int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateVehicleParams contains validated parameters for registering a vehicle.
type CreateVehicleParams struct {
	OwnerID    uuid.UUID
	Plate      string
	Make       string
	Model      string
	OdometerKm int64
}
