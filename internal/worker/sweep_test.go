package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/repository"
	"github.com/pilotos/fleetcore/internal/service"
)

type countingMaintenance struct {
	sweeps atomic.Int32
}

func (c *countingMaintenance) Sweep(ctx context.Context) (*service.SweepStats, error) {
	c.sweeps.Add(1)
	return &service.SweepStats{}, nil
}

func (c *countingMaintenance) Resolve(ctx context.Context, params domain.ResolveMaintenanceParams) (*domain.VehicleMaintenanceState, error) {
	return nil, nil
}

func (c *countingMaintenance) LearnFrequency(ctx context.Context, stateID uuid.UUID, learnedKm int64) (*domain.VehicleMaintenanceState, error) {
	return nil, nil
}

func (c *countingMaintenance) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error) {
	return nil, nil
}

func (c *countingMaintenance) Upcoming(ctx context.Context, vehicleID uuid.UUID) ([]repository.MaintenanceStateRow, error) {
	return nil, nil
}

func (c *countingMaintenance) Catalog(ctx context.Context) ([]domain.MaintenanceCatalogItem, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSweeper builds a Sweeper directly so tests can tick far below the
// one-second interval floor Validate enforces for production configs.
func newTestSweeper(maintenance service.MaintenanceService, interval time.Duration) *Sweeper {
	return &Sweeper{
		maintenance: maintenance,
		config: Config{
			Interval:        interval,
			RunTimeout:      time.Second,
			ShutdownTimeout: time.Second,
		},
		logger: testLogger(),
		stopCh: make(chan struct{}),
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Interval = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.RunTimeout = 0
	assert.Error(t, bad.Validate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&countingMaintenance{}, Config{Interval: 20 * time.Millisecond}, testLogger())
	require.Error(t, err)

	sweeper, err := New(&countingMaintenance{}, DefaultConfig(), testLogger())
	require.NoError(t, err)
	require.NotNil(t, sweeper)
}

func TestSweeperRunsImmediatelyAndOnInterval(t *testing.T) {
	maintenance := &countingMaintenance{}
	sweeper := newTestSweeper(maintenance, 20*time.Millisecond)

	sweeper.Start(context.Background())

	assert.Eventually(t, func() bool {
		return maintenance.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	after := maintenance.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, maintenance.sweeps.Load())
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	maintenance := &countingMaintenance{}
	sweeper := newTestSweeper(maintenance, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := maintenance.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, maintenance.sweeps.Load())
}
