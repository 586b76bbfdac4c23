package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pilotos/fleetcore/internal/domain"
)

type mockPersonStore struct {
	person     *domain.Person
	personErr  error
	byPhone    *domain.Person
	byPhoneErr error
	vehicle    *domain.Vehicle
	vehicleErr error

	createFn func(ctx context.Context, p domain.CreatePersonParams, pinHash string) (*domain.Person, error)
	assigned []uuid.UUID
}

func (m *mockPersonStore) CreatePerson(ctx context.Context, p domain.CreatePersonParams, pinHash string) (*domain.Person, error) {
	return m.createFn(ctx, p, pinHash)
}

func (m *mockPersonStore) GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	if m.personErr != nil {
		return nil, m.personErr
	}
	return m.person, nil
}

func (m *mockPersonStore) GetPersonByPhone(ctx context.Context, phone string) (*domain.Person, error) {
	if m.byPhoneErr != nil {
		return nil, m.byPhoneErr
	}
	return m.byPhone, nil
}

func (m *mockPersonStore) AssignDriver(ctx context.Context, driverID, vehicleID uuid.UUID) (*domain.Assignment, error) {
	m.assigned = append(m.assigned, vehicleID)
	return &domain.Assignment{ID: uuid.New(), DriverID: driverID, VehicleID: vehicleID, Active: true}, nil
}

func (m *mockPersonStore) GetActiveAssignment(ctx context.Context, driverID uuid.UUID) (*domain.Assignment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockPersonStore) GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	if m.vehicleErr != nil {
		return nil, m.vehicleErr
	}
	return m.vehicle, nil
}

func TestPersonCreate(t *testing.T) {
	ownerID := uuid.New()

	valid := domain.CreatePersonParams{
		Name:    "Luis",
		Phone:   "+34600111222",
		Role:    domain.RoleDriver,
		OwnerID: &ownerID,
		PIN:     "4821",
	}

	t.Run("driver is stored with a hashed pin", func(t *testing.T) {
		store := &mockPersonStore{
			createFn: func(ctx context.Context, p domain.CreatePersonParams, pinHash string) (*domain.Person, error) {
				require.NoError(t, bcrypt.CompareHashAndPassword([]byte(pinHash), []byte("4821")))
				assert.NotContains(t, pinHash, "4821")
				return &domain.Person{ID: uuid.New(), Name: p.Name, Role: p.Role, PINHash: pinHash}, nil
			},
		}
		svc := NewPersonService(store, testLogger())

		person, err := svc.Create(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleDriver, person.Role)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc := NewPersonService(&mockPersonStore{}, testLogger())

		tests := []struct {
			name   string
			mutate func(p *domain.CreatePersonParams)
		}{
			{"missing name", func(p *domain.CreatePersonParams) { p.Name = "" }},
			{"bad phone", func(p *domain.CreatePersonParams) { p.Phone = "seis cero cero" }},
			{"bad role", func(p *domain.CreatePersonParams) { p.Role = "MECHANIC" }},
			{"driver without owner", func(p *domain.CreatePersonParams) { p.OwnerID = nil }},
			{"owner referencing an owner", func(p *domain.CreatePersonParams) { p.Role = domain.RoleOwner }},
			{"short pin", func(p *domain.CreatePersonParams) { p.PIN = "12" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := valid
				tt.mutate(&p)
				_, err := svc.Create(context.Background(), p)
				require.Error(t, err)
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			})
		}
	})
}

func TestVerifyPIN(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("4821"), bcrypt.MinCost)
	require.NoError(t, err)

	person := &domain.Person{
		ID:      uuid.New(),
		Phone:   "+34600111222",
		PINHash: string(hash),
		Active:  true,
	}

	t.Run("correct pin returns the person", func(t *testing.T) {
		svc := NewPersonService(&mockPersonStore{byPhone: person}, testLogger())
		got, err := svc.VerifyPIN(context.Background(), person.Phone, "4821")
		require.NoError(t, err)
		assert.Equal(t, person.ID, got.ID)
	})

	t.Run("wrong pin is unauthorized", func(t *testing.T) {
		svc := NewPersonService(&mockPersonStore{byPhone: person}, testLogger())
		_, err := svc.VerifyPIN(context.Background(), person.Phone, "0000")
		require.Error(t, err)
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})

	t.Run("unknown phone is unauthorized, not not-found", func(t *testing.T) {
		svc := NewPersonService(&mockPersonStore{byPhoneErr: sql.ErrNoRows}, testLogger())
		_, err := svc.VerifyPIN(context.Background(), "+34999888777", "4821")
		require.Error(t, err)
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})

	t.Run("deactivated account is forbidden", func(t *testing.T) {
		inactive := *person
		inactive.Active = false
		svc := NewPersonService(&mockPersonStore{byPhone: &inactive}, testLogger())
		_, err := svc.VerifyPIN(context.Background(), person.Phone, "4821")
		require.Error(t, err)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})
}

func TestAssign(t *testing.T) {
	driverID := uuid.New()
	vehicleID := uuid.New()
	ownerID := uuid.New()

	driver := &domain.Person{ID: driverID, Role: domain.RoleDriver, OwnerID: &ownerID}
	vehicle := &domain.Vehicle{ID: vehicleID}

	t.Run("driver gets the vehicle", func(t *testing.T) {
		store := &mockPersonStore{person: driver, vehicle: vehicle}
		svc := NewPersonService(store, testLogger())

		assignment, err := svc.Assign(context.Background(), driverID, vehicleID)
		require.NoError(t, err)
		assert.True(t, assignment.Active)
		assert.Equal(t, vehicleID, assignment.VehicleID)
	})

	t.Run("owners cannot be assigned", func(t *testing.T) {
		owner := &domain.Person{ID: uuid.New(), Role: domain.RoleOwner}
		store := &mockPersonStore{person: owner, vehicle: vehicle}
		svc := NewPersonService(store, testLogger())

		_, err := svc.Assign(context.Background(), owner.ID, vehicleID)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("unknown vehicle is not found", func(t *testing.T) {
		store := &mockPersonStore{person: driver, vehicleErr: sql.ErrNoRows}
		svc := NewPersonService(store, testLogger())

		_, err := svc.Assign(context.Background(), driverID, vehicleID)
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}
