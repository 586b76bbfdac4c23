// This file implements person registration, chat-channel PIN verification,
// and driver-to-vehicle assignment.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for PIN hashing. PINs are short, so the
	// cost matters more than for passphrases.
	BcryptCost = 12

	// MinPINLength is the minimum accepted chat PIN length.
	MinPINLength = 4
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// PersonService defines person and assignment operations.
type PersonService interface {
	// Create registers an owner or driver. Drivers must reference an owner.
	Create(ctx context.Context, params domain.CreatePersonParams) (*domain.Person, error)

	// GetByID retrieves a person.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)

	// VerifyPIN checks a chat PIN against the person registered under the
	// phone number. Returns the person on success.
	// Returns domain.EUNAUTHORIZED on mismatch or unknown phone.
	VerifyPIN(ctx context.Context, phone, pin string) (*domain.Person, error)

	// Assign links a driver to the vehicle they operate, replacing any
	// previous active assignment.
	Assign(ctx context.Context, driverID, vehicleID uuid.UUID) (*domain.Assignment, error)

	// ActiveAssignment returns the driver's current vehicle assignment.
	ActiveAssignment(ctx context.Context, driverID uuid.UUID) (*domain.Assignment, error)
}

// personStore is the slice of the repository the service needs.
type personStore interface {
	CreatePerson(ctx context.Context, p domain.CreatePersonParams, pinHash string) (*domain.Person, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)
	GetPersonByPhone(ctx context.Context, phone string) (*domain.Person, error)
	AssignDriver(ctx context.Context, driverID, vehicleID uuid.UUID) (*domain.Assignment, error)
	GetActiveAssignment(ctx context.Context, driverID uuid.UUID) (*domain.Assignment, error)
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
}

type personService struct {
	store  personStore
	logger *slog.Logger
}

// NewPersonService creates a new PersonService.
func NewPersonService(store personStore, logger *slog.Logger) PersonService {
	return &personService{store: store, logger: logger}
}

func (s *personService) Create(ctx context.Context, params domain.CreatePersonParams) (*domain.Person, error) {
	const op = "person.create"

	if params.Name == "" {
		return nil, domain.Invalid(op, "name is required")
	}
	if !phonePattern.MatchString(params.Phone) {
		return nil, domain.Invalid(op, "phone must be a plain international number")
	}
	if !params.Role.IsValid() {
		return nil, domain.Invalid(op, "role must be OWNER or DRIVER")
	}
	if params.Role == domain.RoleDriver && params.OwnerID == nil {
		return nil, domain.Invalid(op, "drivers must reference an owner")
	}
	if params.Role == domain.RoleOwner && params.OwnerID != nil {
		return nil, domain.Invalid(op, "owners cannot reference another owner")
	}
	if len(params.PIN) < MinPINLength {
		return nil, domain.Invalid(op, "pin is too short")
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(params.PIN), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash pin")
	}

	person, err := s.store.CreatePerson(ctx, params, string(pinHash))
	if err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, domain.Conflict(op, "", "a person with this phone already exists")
		}
		return nil, domain.Internal(err, op, "failed to store person")
	}

	s.logger.Info("person registered",
		"person_id", person.ID,
		"role", person.Role)
	return person, nil
}

func (s *personService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	const op = "person.get"

	person, err := s.store.GetPersonByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "person", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load person")
	}
	return person, nil
}

func (s *personService) VerifyPIN(ctx context.Context, phone, pin string) (*domain.Person, error) {
	const op = "person.verify_pin"

	person, err := s.store.GetPersonByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a comparison so unknown phones cost the same as bad
			// PINs.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$12$000000000000000000000000000000000000000000000000000000"),
				[]byte(pin))
			return nil, domain.Errorf(domain.EUNAUTHORIZED, op, "invalid phone or pin")
		}
		return nil, domain.Internal(err, op, "failed to load person")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(person.PINHash), []byte(pin)); err != nil {
		return nil, domain.Errorf(domain.EUNAUTHORIZED, op, "invalid phone or pin")
	}
	if !person.Active {
		return nil, domain.Forbidden(op, "account is deactivated")
	}
	return person, nil
}

func (s *personService) Assign(ctx context.Context, driverID, vehicleID uuid.UUID) (*domain.Assignment, error) {
	const op = "person.assign"

	driver, err := s.store.GetPersonByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "driver", driverID.String())
		}
		return nil, domain.Internal(err, op, "failed to load driver")
	}
	if !driver.IsDriver() {
		return nil, domain.Invalid(op, "only drivers can be assigned to vehicles")
	}

	if _, err := s.store.GetVehicleByID(ctx, vehicleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "vehicle", vehicleID.String())
		}
		return nil, domain.Internal(err, op, "failed to load vehicle")
	}

	assignment, err := s.store.AssignDriver(ctx, driverID, vehicleID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to assign driver")
	}

	s.logger.Info("driver assigned",
		"driver_id", driverID,
		"vehicle_id", vehicleID)
	return assignment, nil
}

func (s *personService) ActiveAssignment(ctx context.Context, driverID uuid.UUID) (*domain.Assignment, error) {
	const op = "person.assignment"

	assignment, err := s.store.GetActiveAssignment(ctx, driverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "assignment for driver", driverID.String())
		}
		return nil, domain.Internal(err, op, "failed to load assignment")
	}
	return assignment, nil
}
