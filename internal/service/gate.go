// Package service contains the business logic layer.
//
// This file implements the pending-task gate. While a driver has any
// unresolved pending task, new report submissions and fresh evidence uploads
// from that driver are rejected. The replacement path stays open because
// replacing the photo is how the task gets resolved.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

// taskFinder is the slice of the repository the gate needs.
type taskFinder interface {
	FindUnresolvedTaskByDriver(ctx context.Context, driverID uuid.UUID) (*domain.PendingTask, error)
}

// TaskGate checks a driver for blocking pending tasks.
type TaskGate struct {
	store taskFinder
}

// NewTaskGate creates a new gate over the given store.
func NewTaskGate(store taskFinder) *TaskGate {
	return &TaskGate{store: store}
}

// Check returns a gated error referencing the oldest blocking task, or nil
// when the driver is clear to submit.
func (g *TaskGate) Check(ctx context.Context, op string, driverID uuid.UUID) error {
	task, err := g.store.FindUnresolvedTaskByDriver(ctx, driverID)
	if err != nil {
		return domain.Internal(err, op, "failed to check pending tasks")
	}
	if task != nil {
		return domain.Gated(op, task.ID)
	}
	return nil
}
