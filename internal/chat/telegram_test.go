package chat

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilotos/fleetcore/internal/domain"
)

type stubTasks struct {
	tasks []domain.PendingTask
	err   error
}

func (s stubTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingTask, error) {
	return nil, nil
}

func (s stubTasks) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.PendingTask, error) {
	return s.tasks, s.err
}

func (s stubTasks) Resolve(ctx context.Context, id uuid.UUID) error {
	return nil
}

func newTestBot(tasks stubTasks) *Bot {
	return &Bot{
		tasks:    tasks,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions: make(map[int64]uuid.UUID),
	}
}

func TestSessions(t *testing.T) {
	b := newTestBot(stubTasks{})

	_, ok := b.session(42)
	assert.False(t, ok)

	personID := uuid.New()
	b.setSession(42, personID)

	got, ok := b.session(42)
	require.True(t, ok)
	assert.Equal(t, personID, got)

	_, ok = b.session(43)
	assert.False(t, ok)
}

func TestOldestUnresolvedTask(t *testing.T) {
	driverID := uuid.New()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	oldEvidence := uuid.New()
	newEvidence := uuid.New()

	tasks := []domain.PendingTask{
		{
			ID:        uuid.New(),
			DriverID:  driverID,
			Kind:      domain.TaskKindIllegibleEvidence,
			EntityID:  newEvidence,
			CreatedAt: base.Add(2 * time.Hour),
		},
		{
			ID:        uuid.New(),
			DriverID:  driverID,
			Kind:      domain.TaskKindIllegibleEvidence,
			EntityID:  uuid.New(),
			Resolved:  true,
			CreatedAt: base,
		},
		{
			ID:        uuid.New(),
			DriverID:  driverID,
			Kind:      domain.TaskKindIllegibleEvidence,
			EntityID:  oldEvidence,
			CreatedAt: base.Add(time.Hour),
		},
	}

	b := newTestBot(stubTasks{tasks: tasks})

	task := b.oldestUnresolvedTask(context.Background(), driverID)
	require.NotNil(t, task)
	assert.Equal(t, oldEvidence, task.EntityID)
}

func TestOldestUnresolvedTaskNone(t *testing.T) {
	b := newTestBot(stubTasks{tasks: []domain.PendingTask{
		{Kind: domain.TaskKindIllegibleEvidence, Resolved: true},
	}})

	assert.Nil(t, b.oldestUnresolvedTask(context.Background(), uuid.New()))
}
