package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind classifies what a pending task is asking the driver to fix.
type TaskKind string

const (
	// TaskKindIllegibleEvidence blocks the driver until an illegible evidence
	// photo is replaced with a legible one.
	TaskKindIllegibleEvidence TaskKind = "ILLEGIBLE_EVIDENCE"
)

// PendingTask is a remediation obligation on a driver. While any task for a
// driver is unresolved, the gate rejects new report submissions and fresh
// evidence uploads from that driver. The replacement path stays open because
// replacing the photo is how the task gets resolved.
type PendingTask struct {
	ID         uuid.UUID
	DriverID   uuid.UUID
	Kind       TaskKind
	EntityID   uuid.UUID // the entity requiring remediation (evidence id)
	Resolved   bool
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
