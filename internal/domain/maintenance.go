package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Maintenance Trigger
// =============================================================================

// TriggerKind says what makes a maintenance obligation come due.
type TriggerKind string

const (
	// TriggerDistance obligations come due after a distance interval.
	TriggerDistance TriggerKind = "DISTANCE"
	// TriggerTime obligations come due after an elapsed-time interval.
	TriggerTime TriggerKind = "TIME"
	// TriggerWear obligations have no automatic schedule; they are resolved
	// when wear is observed. The sweep never transitions them.
	TriggerWear TriggerKind = "WEAR"
)

// Trigger is the schedule rule of a catalog item. Exactly one variant applies,
// selected by Kind; the interval fields of the other variants are ignored.
type Trigger struct {
	Kind           TriggerKind
	IntervalKm     int64 // DISTANCE: kilometers between services
	IntervalMonths int   // TIME: months between services
}

// IsValid checks that the trigger carries the interval its kind requires.
func (t Trigger) IsValid() bool {
	switch t.Kind {
	case TriggerDistance:
		return t.IntervalKm > 0
	case TriggerTime:
		return t.IntervalMonths > 0
	case TriggerWear:
		return true
	}
	return false
}

// monthsAsDuration converts a month count the way the scheduling engine
// counts time: 30-day months.
func monthsAsDuration(months int) time.Duration {
	return time.Duration(months) * 30 * 24 * time.Hour
}

// =============================================================================
// Catalog & Per-Vehicle State
// =============================================================================

// MaintenanceStatus is the per-vehicle obligation state.
type MaintenanceStatus string

const (
	MaintenanceStatusPending  MaintenanceStatus = "PENDING"
	MaintenanceStatusOverdue  MaintenanceStatus = "OVERDUE"
	MaintenanceStatusResolved MaintenanceStatus = "RESOLVED"
)

// IsValid returns true if the status is a recognized value.
func (s MaintenanceStatus) IsValid() bool {
	switch s {
	case MaintenanceStatusPending, MaintenanceStatusOverdue, MaintenanceStatusResolved:
		return true
	}
	return false
}

// MaintenanceCatalogItem is a named obligation template. Immutable reference
// data seeded by migration.
type MaintenanceCatalogItem struct {
	ID      uuid.UUID
	Name    string
	Trigger Trigger
}

// VehicleMaintenanceState tracks one catalog obligation on one vehicle.
type VehicleMaintenanceState struct {
	ID            uuid.UUID
	VehicleID     uuid.UUID
	CatalogItemID uuid.UUID
	LastKm        *int64     // odometer at last service, nil if never performed
	LastDate      *time.Time // date of last service, nil if never performed
	NextDueKm     *int64     // derived, nil when no distance trigger applies
	NextDueDate   *time.Time // derived, nil when no time trigger applies
	LearnedKm     *int64     // vehicle-specific distance override (learned frequency)
	Status        MaintenanceStatus
	Reminded      bool // an approaching reminder already went out this window
	UpdatedAt     time.Time
}

// EffectiveIntervalKm returns the distance interval the engine schedules by:
// the learned per-vehicle override when present, else the catalog default.
func (s *VehicleMaintenanceState) EffectiveIntervalKm(item MaintenanceCatalogItem) int64 {
	if s.LearnedKm != nil && *s.LearnedKm > 0 {
		return *s.LearnedKm
	}
	return item.Trigger.IntervalKm
}

// IsDue reports whether either trigger condition has been met. The distance
// and time triggers are independent: due-ness is their OR.
func (s *VehicleMaintenanceState) IsDue(odometerKm int64, now time.Time) bool {
	if s.NextDueKm != nil && odometerKm >= *s.NextDueKm {
		return true
	}
	if s.NextDueDate != nil && !now.Before(*s.NextDueDate) {
		return true
	}
	return false
}

// IsApproaching reports whether the obligation falls inside the look-ahead
// window while still PENDING. Overdue and resolved items never "approach".
func (s *VehicleMaintenanceState) IsApproaching(odometerKm int64, now time.Time, lookaheadKm int64, lookaheadDays int) bool {
	if s.Status != MaintenanceStatusPending {
		return false
	}
	if s.NextDueKm != nil && odometerKm+lookaheadKm >= *s.NextDueKm {
		return true
	}
	if s.NextDueDate != nil && now.Add(time.Duration(lookaheadDays)*24*time.Hour).After(*s.NextDueDate) {
		return true
	}
	return false
}

// NextDue computes the next-due values after a service performed at the given
// odometer and date, using the trigger and the effective distance interval.
func NextDue(trigger Trigger, effectiveKm int64, performedKm int64, performedAt time.Time) (nextKm *int64, nextDate *time.Time) {
	switch trigger.Kind {
	case TriggerDistance:
		if effectiveKm > 0 {
			due := performedKm + effectiveKm
			nextKm = &due
		}
	case TriggerTime:
		if trigger.IntervalMonths > 0 {
			due := performedAt.Add(monthsAsDuration(trigger.IntervalMonths))
			nextDate = &due
		}
	case TriggerWear:
		// wear-based items are rescheduled manually
	}
	return nextKm, nextDate
}

// ResolveMaintenanceParams contains parameters for closing out an obligation.
type ResolveMaintenanceParams struct {
	StateID      uuid.UUID
	PerformedKm  *int64     // defaults to the vehicle's current odometer
	PerformedAt  *time.Time // defaults to now
	ExpenseCents int64      // optional associated expense, 0 to skip
	InvoiceRef   string     // optional invoice storage reference
}
