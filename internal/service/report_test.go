package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
	ocrmock "github.com/pilotos/fleetcore/internal/ocr/mock"
	"github.com/pilotos/fleetcore/internal/repository"
)

type mockReportStore struct {
	createReportFn func(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error)
	getReportFn    func(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)
	listReportsFn  func(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error)
	getVehicleFn   func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
}

func (m *mockReportStore) CreateReport(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error) {
	return m.createReportFn(ctx, p)
}

func (m *mockReportStore) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error) {
	return m.getReportFn(ctx, id)
}

func (m *mockReportStore) ListReports(ctx context.Context, f repository.ReportFilter) ([]domain.DailyReport, error) {
	return m.listReportsFn(ctx, f)
}

func (m *mockReportStore) GetVehicleByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	return m.getVehicleFn(ctx, id)
}

// blockedBy is a gate source that always returns the given task.
type blockedBy struct {
	task *domain.PendingTask
}

func (b blockedBy) FindUnresolvedTaskByDriver(ctx context.Context, driverID uuid.UUID) (*domain.PendingTask, error) {
	return b.task, nil
}

func validParams(vehicleID, driverID uuid.UUID) domain.CreateReportParams {
	return domain.CreateReportParams{
		VehicleID:         vehicleID,
		DriverID:          driverID,
		WorkDate:          time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		StartOdometerKm:   125000,
		EndOdometerKm:     125230,
		TotalRevenueCents: 18450,
		CardRevenueCents:  9200,
		MeterPhotoRef:     "evidence/meter.jpg",
	}
}

func newReportFixture(t *testing.T, store *mockReportStore, gateSrc taskFinder) ReportService {
	t.Helper()
	gate := NewTaskGate(gateSrc)

	evStore := &mockEvidenceStore{
		insertEvidenceFn: func(ctx context.Context, p repository.InsertEvidenceParams) (*domain.PhotoEvidence, *domain.PendingTask, error) {
			return &domain.PhotoEvidence{ID: uuid.New(), ReportID: p.ReportID, Kind: p.Kind, Status: p.Status}, nil, nil
		},
	}
	evidence := NewEvidenceService(evStore, gate, ocrmock.New(testLogger()), 60, domain.MaxReplacementAttempts, testLogger())

	return NewReportService(store, gate, evidence, testLogger())
}

func TestReportSubmit(t *testing.T) {
	vehicleID := uuid.New()
	driverID := uuid.New()

	vehicle := &domain.Vehicle{ID: vehicleID, OdometerKm: 125000}

	t.Run("valid submission stores the report and both photos", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
			createReportFn: func(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error) {
				assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), p.WorkDate)
				return &domain.DailyReport{
					ID:        uuid.New(),
					VehicleID: p.VehicleID,
					DriverID:  p.DriverID,
					WorkDate:  p.WorkDate,
					Status:    domain.ReportStatusSubmitted,
				}, nil
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		params := validParams(vehicleID, driverID)
		params.FuelExpenseCents = 4300
		params.FuelPhotoRef = "evidence/fuel.jpg"

		result, err := svc.Submit(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, domain.ReportStatusSubmitted, result.Report.Status)
		require.NotNil(t, result.Meter)
		require.NotNil(t, result.Fuel)
	})

	t.Run("no fuel photo is attached when no fuel was bought", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
			createReportFn: func(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error) {
				return &domain.DailyReport{ID: uuid.New(), DriverID: p.DriverID}, nil
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		result, err := svc.Submit(context.Background(), validParams(vehicleID, driverID))
		require.NoError(t, err)
		assert.Nil(t, result.Fuel)
	})

	t.Run("unresolved task gates the submission", func(t *testing.T) {
		taskID := uuid.New()
		store := &mockReportStore{}
		svc := newReportFixture(t, store, blockedBy{task: &domain.PendingTask{ID: taskID, DriverID: driverID}})

		_, err := svc.Submit(context.Background(), validParams(vehicleID, driverID))
		require.Error(t, err)
		assert.Equal(t, domain.EGATED, domain.ErrorCode(err))

		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, taskID, derr.TaskID)
	})

	t.Run("broken rules come back as one validation error", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		params := validParams(vehicleID, driverID)
		params.EndOdometerKm = params.StartOdometerKm
		params.CardRevenueCents = params.TotalRevenueCents + 1

		_, err := svc.Submit(context.Background(), params)
		require.Error(t, err)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Violations, 2) // odometer order, revenue order
	})

	t.Run("missing meter photo is rejected", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		params := validParams(vehicleID, driverID)
		params.MeterPhotoRef = ""

		_, err := svc.Submit(context.Background(), params)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("fuel expense without a fuel photo is rejected", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		params := validParams(vehicleID, driverID)
		params.FuelExpenseCents = 2500

		_, err := svc.Submit(context.Background(), params)
		require.Error(t, err)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Len(t, ve.Violations, 1)
		assert.Equal(t, domain.RuleReportFuelEvidence, ve.Violations[0].Rule)
	})

	t.Run("second report for the same vehicle and day conflicts", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return vehicle, nil
			},
			createReportFn: func(ctx context.Context, p domain.CreateReportParams) (*domain.DailyReport, error) {
				return nil, &pgconn.PgError{Code: "23505", ConstraintName: repository.ReportUniqueConstraint}
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		_, err := svc.Submit(context.Background(), validParams(vehicleID, driverID))
		require.Error(t, err)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})

	t.Run("unknown vehicle is not found", func(t *testing.T) {
		store := &mockReportStore{
			getVehicleFn: func(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
				return nil, sql.ErrNoRows
			},
		}
		svc := newReportFixture(t, store, noTasks{})

		_, err := svc.Submit(context.Background(), validParams(vehicleID, driverID))
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}
