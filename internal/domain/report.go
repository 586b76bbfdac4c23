package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Report Status
// =============================================================================

// ReportStatus is the lifecycle state of a daily report. Reports are immutable
// after creation except for the single SUBMITTED -> PHOTO_REPLACED transition,
// which happens when illegible evidence is successfully replaced.
type ReportStatus string

const (
	ReportStatusSubmitted     ReportStatus = "SUBMITTED"
	ReportStatusPhotoReplaced ReportStatus = "PHOTO_REPLACED"
)

// IsValid returns true if the status is a recognized value.
func (s ReportStatus) IsValid() bool {
	return s == ReportStatusSubmitted || s == ReportStatusPhotoReplaced
}

// CanTransitionTo reports whether the status may move to target. The only
// permitted transition is SUBMITTED -> PHOTO_REPLACED.
func (s ReportStatus) CanTransitionTo(target ReportStatus) bool {
	return s == ReportStatusSubmitted && target == ReportStatusPhotoReplaced
}

// =============================================================================
// Daily Report
// =============================================================================

// DailyReport is one vehicle's operating report for a single work date.
// Monetary amounts are integer cents. At most one report exists per
// (vehicle, work date) pair; the database enforces the uniqueness.
type DailyReport struct {
	ID                uuid.UUID
	VehicleID         uuid.UUID
	DriverID          uuid.UUID
	WorkDate          time.Time // date only, normalized to midnight UTC
	StartOdometerKm   int64
	EndOdometerKm     int64
	TotalRevenueCents int64
	CardRevenueCents  int64
	FuelExpenseCents  int64 // zero when no fuel was purchased
	Status            ReportStatus
	CreatedAt         time.Time
}

// DistanceKm returns the distance covered by the report.
func (r *DailyReport) DistanceKm() int64 {
	return r.EndOdometerKm - r.StartOdometerKm
}

// CreateReportParams contains the candidate fields for a new daily report.
type CreateReportParams struct {
	VehicleID         uuid.UUID
	DriverID          uuid.UUID
	WorkDate          time.Time
	StartOdometerKm   int64
	EndOdometerKm     int64
	TotalRevenueCents int64
	CardRevenueCents  int64
	FuelExpenseCents  int64
	MeterPhotoRef     string // storage reference for the meter photo
	FuelPhotoRef      string // storage reference for the fuel photo, when fuel was bought
}

// ValidateReport checks a candidate report against the field and consistency
// rules. currentOdometerKm is the vehicle's reading at validation time; an end
// odometer below it would make the vehicle's monotonic odometer regress, so it
// is rejected rather than silently clamped. All broken rules are collected.
func ValidateReport(p CreateReportParams, currentOdometerKm int64) error {
	ve := &ValidationError{Op: "report.validate"}

	if p.WorkDate.IsZero() {
		ve.Add(RuleReportFieldsRequired, "work_date", "work_date is required")
	}
	if p.VehicleID == uuid.Nil {
		ve.Add(RuleReportFieldsRequired, "vehicle_id", "vehicle_id is required")
	}
	if p.DriverID == uuid.Nil {
		ve.Add(RuleReportFieldsRequired, "driver_id", "driver_id is required")
	}
	if p.StartOdometerKm < 0 {
		ve.Add(RuleReportFieldsRequired, "start_odometer_km", "start_odometer_km must not be negative")
	}
	if p.TotalRevenueCents < 0 {
		ve.Add(RuleReportFieldsRequired, "total_revenue_cents", "total_revenue_cents must not be negative")
	}
	if p.CardRevenueCents < 0 {
		ve.Add(RuleReportFieldsRequired, "card_revenue_cents", "card_revenue_cents must not be negative")
	}

	if p.EndOdometerKm <= p.StartOdometerKm {
		ve.Add(RuleReportOdometerOrder, "end_odometer_km", "end_odometer_km must be strictly greater than start_odometer_km")
	}
	if p.TotalRevenueCents < p.CardRevenueCents {
		ve.Add(RuleReportRevenueOrder, "total_revenue_cents", "total_revenue_cents must be greater than or equal to card_revenue_cents")
	}
	if p.FuelExpenseCents > 0 && p.FuelPhotoRef == "" {
		ve.Add(RuleReportFuelEvidence, "fuel_photo_ref", "fuel expense requires a fuel evidence photo")
	}
	if p.EndOdometerKm < currentOdometerKm {
		ve.Add(RuleReportOdometerRegress, "end_odometer_km", "end_odometer_km is below the vehicle's current reading")
	}

	return ve.OrNil()
}

// NormalizeWorkDate truncates a timestamp to its UTC calendar date, the
// granularity of the per-vehicle uniqueness key.
func NormalizeWorkDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
