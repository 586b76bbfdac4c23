package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/notify"
)

type mockIncidentStore struct {
	report   *domain.DailyReport
	owner    *domain.Person
	ownerErr error
	driver   *domain.Person
	vehicle  *domain.Vehicle
	incident *domain.Incident
	closeErr error

	created []domain.CreateIncidentParams
	closed  []uuid.UUID
}

func (m *mockIncidentStore) CreateIncident(ctx context.Context, p domain.CreateIncidentParams, approverID uuid.UUID) (*domain.Incident, error) {
	m.created = append(m.created, p)
	return &domain.Incident{
		ID:          uuid.New(),
		ReportID:    p.ReportID,
		ApproverID:  approverID,
		Description: p.Description,
		Decision:    p.Decision,
		Status:      domain.IncidentStatusOpen,
	}, nil
}

func (m *mockIncidentStore) GetIncidentByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return m.incident, nil
}

func (m *mockIncidentStore) CloseIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	m.closed = append(m.closed, id)
	closed := *m.incident
	closed.Status = domain.IncidentStatusClosed
	return &closed, nil
}

func (m *mockIncidentStore) ListIncidentsByApprover(ctx context.Context, approverID uuid.UUID) ([]domain.Incident, error) {
	return nil, nil
}

func (m *mockIncidentStore) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
	return m.report, nil
}

func (m *mockIncidentStore) GetPersonByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	return m.driver, nil
}

func (m *mockIncidentStore) GetOwnerOfDriver(ctx context.Context, driverID uuid.UUID) (*domain.Person, error) {
	if m.ownerErr != nil {
		return nil, m.ownerErr
	}
	return m.owner, nil
}

func (m *mockIncidentStore) GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	return m.vehicle, nil
}

func newIncidentFixture(store *mockIncidentStore) (IncidentService, *notify.MockSender) {
	sender := notify.NewMockSender(testLogger())
	notifier := notify.New(sender, 0, testLogger())
	return NewIncidentService(store, notifier, testLogger()), sender
}

func TestIncidentRaise(t *testing.T) {
	reportID := uuid.New()
	driverID := uuid.New()
	ownerID := uuid.New()
	vehicleID := uuid.New()

	params := domain.CreateIncidentParams{
		ReportID:      reportID,
		DriverID:      driverID,
		Description:   "ticket ilegible por lluvia",
		Decision:      "aceptar informe sin foto",
		Justification: "la gasolinera no emite ticket duplicado",
	}

	newStore := func() *mockIncidentStore {
		return &mockIncidentStore{
			report:  &domain.DailyReport{ID: reportID, DriverID: driverID, VehicleID: vehicleID},
			owner:   &domain.Person{ID: ownerID, Name: "Marta", Phone: "+34600111222"},
			driver:  &domain.Person{ID: driverID, Name: "Luis"},
			vehicle: &domain.Vehicle{ID: vehicleID, Plate: "1234 BCD"},
		}
	}

	t.Run("driver raises against own report and the owner is alerted", func(t *testing.T) {
		store := newStore()
		svc, sender := newIncidentFixture(store)

		incident, err := svc.Raise(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, domain.IncidentStatusOpen, incident.Status)
		assert.Equal(t, ownerID, incident.ApproverID)

		sent := sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "+34600111222", sent[0].Phone)
		assert.Contains(t, sent[0].Text, "Luis")
		assert.Contains(t, sent[0].Text, "1234 BCD")
	})

	t.Run("someone else's report is forbidden", func(t *testing.T) {
		store := newStore()
		store.report.DriverID = uuid.New()
		svc, _ := newIncidentFixture(store)

		_, err := svc.Raise(context.Background(), params)
		require.Error(t, err)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("driver without an owner cannot raise", func(t *testing.T) {
		store := newStore()
		store.ownerErr = sql.ErrNoRows
		svc, _ := newIncidentFixture(store)

		_, err := svc.Raise(context.Background(), params)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Equal(t, domain.RuleIncidentNeedsOwner, domain.ErrorRule(err))
	})

	t.Run("alert failure does not fail the raise", func(t *testing.T) {
		store := newStore()
		svc, sender := newIncidentFixture(store)
		sendErr := assert.AnError
		sender.SendErrors = []error{sendErr, sendErr}

		incident, err := svc.Raise(context.Background(), params)
		require.NoError(t, err)
		assert.NotNil(t, incident)
	})

	t.Run("description, decision and justification are required", func(t *testing.T) {
		svc, _ := newIncidentFixture(newStore())

		p := params
		p.Description = ""
		_, err := svc.Raise(context.Background(), p)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		p = params
		p.Decision = ""
		_, err = svc.Raise(context.Background(), p)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		p = params
		p.Justification = ""
		_, err = svc.Raise(context.Background(), p)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}

func TestIncidentClose(t *testing.T) {
	incidentID := uuid.New()
	approverID := uuid.New()

	open := &domain.Incident{
		ID:         incidentID,
		ApproverID: approverID,
		Status:     domain.IncidentStatusOpen,
	}

	t.Run("approver closes an open incident", func(t *testing.T) {
		store := &mockIncidentStore{incident: open}
		svc, _ := newIncidentFixture(store)

		closed, err := svc.Close(context.Background(), incidentID, approverID)
		require.NoError(t, err)
		assert.Equal(t, domain.IncidentStatusClosed, closed.Status)
	})

	t.Run("anyone else is forbidden", func(t *testing.T) {
		store := &mockIncidentStore{incident: open}
		svc, _ := newIncidentFixture(store)

		_, err := svc.Close(context.Background(), incidentID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("closing twice conflicts", func(t *testing.T) {
		alreadyClosed := *open
		alreadyClosed.Status = domain.IncidentStatusClosed
		store := &mockIncidentStore{incident: &alreadyClosed}
		svc, _ := newIncidentFixture(store)

		_, err := svc.Close(context.Background(), incidentID, approverID)
		require.Error(t, err)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})

	t.Run("losing a concurrent close conflicts", func(t *testing.T) {
		store := &mockIncidentStore{incident: open, closeErr: sql.ErrNoRows}
		svc, _ := newIncidentFixture(store)

		_, err := svc.Close(context.Background(), incidentID, approverID)
		require.Error(t, err)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})
}
