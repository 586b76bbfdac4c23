package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExpenseKind classifies a vehicle expense.
type ExpenseKind string

const (
	ExpenseKindFuel        ExpenseKind = "FUEL"
	ExpenseKindMaintenance ExpenseKind = "MAINTENANCE"
	ExpenseKindOther       ExpenseKind = "OTHER"
)

// IsValid returns true if the kind is a recognized value.
func (k ExpenseKind) IsValid() bool {
	switch k {
	case ExpenseKindFuel, ExpenseKindMaintenance, ExpenseKindOther:
		return true
	}
	return false
}

// Expense is a cost record against a vehicle. Maintenance resolutions create
// one automatically when an amount is supplied.
type Expense struct {
	ID          uuid.UUID
	VehicleID   uuid.UUID
	Kind        ExpenseKind
	Description string
	AmountCents int64
	InvoiceRef  string // storage reference of the invoice photo, if any
	IncurredAt  time.Time
	CreatedAt   time.Time
}

// CreateExpenseParams contains parameters for recording an expense.
type CreateExpenseParams struct {
	VehicleID   uuid.UUID
	Kind        ExpenseKind
	Description string
	AmountCents int64
	InvoiceRef  string
	IncurredAt  time.Time
}
