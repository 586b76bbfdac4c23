package domain

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the two-step approval state of an incident.
type IncidentStatus string

const (
	IncidentStatusOpen   IncidentStatus = "OPEN"
	IncidentStatusClosed IncidentStatus = "CLOSED"
)

// Incident is a driver-raised justification record tied to a daily report:
// what happened, what the driver decided, and why. The owner assigned at
// creation is the only person who can close it. Closing changes nothing else;
// unlocking a locked photo on the strength of a closed incident is a separate
// operator action.
type Incident struct {
	ID            uuid.UUID
	ReportID      uuid.UUID
	Description   string // what happened
	Decision      string // decision taken
	Justification string
	ApproverID    uuid.UUID // the raising driver's owner
	Status        IncidentStatus
	ClosedAt      *time.Time
	CreatedAt     time.Time
}

// CreateIncidentParams contains parameters for raising an incident.
type CreateIncidentParams struct {
	ReportID      uuid.UUID
	DriverID      uuid.UUID // actor; must be the report's driver with an assigned owner
	Description   string
	Decision      string
	Justification string
}
