// This file implements vehicle registration and the monotonic odometer.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

// VehicleService defines vehicle operations.
type VehicleService interface {
	// Create registers a vehicle and seeds its maintenance obligation
	// states from the catalog.
	Create(ctx context.Context, params domain.CreateVehicleParams) (*domain.Vehicle, error)

	// GetByID retrieves a vehicle.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)

	// ListByOwner returns an owner's vehicles.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Vehicle, error)

	// CorrectOdometer raises the odometer to the given reading. The
	// odometer is monotonic: a reading below the current one is rejected.
	CorrectOdometer(ctx context.Context, id uuid.UUID, odometerKm int64) (*domain.Vehicle, error)
}

// vehicleStore is the slice of the repository the service needs.
type vehicleStore interface {
	CreateVehicle(ctx context.Context, p domain.CreateVehicleParams) (*domain.Vehicle, error)
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	ListVehiclesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Vehicle, error)
	CorrectOdometer(ctx context.Context, id uuid.UUID, odometerKm int64) (*domain.Vehicle, error)
	BootstrapVehicleMaintenance(ctx context.Context, vehicleID uuid.UUID) error
	GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)
}

type vehicleService struct {
	store  vehicleStore
	logger *slog.Logger
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(store vehicleStore, logger *slog.Logger) VehicleService {
	return &vehicleService{store: store, logger: logger}
}

func (s *vehicleService) Create(ctx context.Context, params domain.CreateVehicleParams) (*domain.Vehicle, error) {
	const op = "vehicle.create"

	if params.Plate == "" {
		return nil, domain.Invalid(op, "plate is required")
	}
	if params.OdometerKm < 0 {
		return nil, domain.Invalid(op, "odometer_km must not be negative")
	}

	owner, err := s.store.GetPersonByID(ctx, params.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "owner", params.OwnerID.String())
		}
		return nil, domain.Internal(err, op, "failed to load owner")
	}
	if owner.IsDriver() {
		return nil, domain.Invalid(op, "vehicles belong to owners, not drivers")
	}

	vehicle, err := s.store.CreateVehicle(ctx, params)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store vehicle")
	}

	if err := s.store.BootstrapVehicleMaintenance(ctx, vehicle.ID); err != nil {
		return nil, domain.Internal(err, op, "failed to seed maintenance states")
	}

	s.logger.Info("vehicle registered",
		"vehicle_id", vehicle.ID,
		"plate", vehicle.Plate,
		"owner_id", vehicle.OwnerID)
	return vehicle, nil
}

func (s *vehicleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	const op = "vehicle.get"

	vehicle, err := s.store.GetVehicleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "vehicle", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}
	return vehicle, nil
}

func (s *vehicleService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Vehicle, error) {
	const op = "vehicle.list"

	out, err := s.store.ListVehiclesByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list vehicles")
	}
	return out, nil
}

func (s *vehicleService) CorrectOdometer(ctx context.Context, id uuid.UUID, odometerKm int64) (*domain.Vehicle, error) {
	const op = "vehicle.correct_odometer"

	current, err := s.store.GetVehicleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "vehicle", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}
	if odometerKm < current.OdometerKm {
		return nil, domain.InvalidRule(op, domain.RuleReportOdometerRegress,
			"odometer corrections can only move forward")
	}

	vehicle, err := s.store.CorrectOdometer(ctx, id, odometerKm)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to correct odometer")
	}

	s.logger.Info("odometer corrected",
		"vehicle_id", id,
		"odometer_km", odometerKm)
	return vehicle, nil
}
