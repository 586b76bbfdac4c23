// This file implements pending task queries and the manual operator resolve.
// The normal resolution path is a passing evidence replacement.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

// TaskService defines pending-task operations.
type TaskService interface {
	// GetByID retrieves a pending task.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingTask, error)

	// ListByDriver returns a driver's tasks, unresolved first.
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.PendingTask, error)

	// Resolve manually clears a task. Operator escape hatch; resolving an
	// already-resolved task is a conflict.
	Resolve(ctx context.Context, id uuid.UUID) error
}

// taskStore is the slice of the repository the service needs.
type taskStore interface {
	GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.PendingTask, error)
	ListTasksByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.PendingTask, error)
	ResolveTask(ctx context.Context, id uuid.UUID) error
}

type taskService struct {
	store  taskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(store taskStore, logger *slog.Logger) TaskService {
	return &taskService{store: store, logger: logger}
}

func (s *taskService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PendingTask, error) {
	const op = "task.get"

	task, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "task", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load task")
	}
	return task, nil
}

func (s *taskService) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.PendingTask, error) {
	const op = "task.list"

	out, err := s.store.ListTasksByDriver(ctx, driverID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list tasks")
	}
	return out, nil
}

func (s *taskService) Resolve(ctx context.Context, id uuid.UUID) error {
	const op = "task.resolve"

	if err := s.store.ResolveTask(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conflict(op, "", "task is already resolved or does not exist")
		}
		return domain.Internal(err, op, "failed to resolve task")
	}

	s.logger.Info("task manually resolved", "task_id", id)
	return nil
}
