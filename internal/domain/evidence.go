package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Evidence Kind & Status
// =============================================================================

// EvidenceKind declares what a photo is supposed to substantiate.
type EvidenceKind string

const (
	EvidenceKindMeter EvidenceKind = "METER" // fare meter ticket backing declared revenue
	EvidenceKindFuel  EvidenceKind = "FUEL"  // fuel station ticket backing a fuel expense
)

// IsValid returns true if the kind is a recognized value.
func (k EvidenceKind) IsValid() bool {
	return k == EvidenceKindMeter || k == EvidenceKindFuel
}

// EvidenceStatus is the state of the photo evidence machine.
//
// Transitions:
//   - creation computes VALID or ILLEGIBLE from the OCR result
//   - ILLEGIBLE -> REPLACED on a passing replacement
//   - ILLEGIBLE -> ILLEGIBLE on a failing replacement under the cap
//   - ILLEGIBLE -> LOCKED when a failing replacement exhausts the cap
//
// LOCKED is terminal for the automated path; only an operator holding a
// closed incident can reopen it.
type EvidenceStatus string

const (
	EvidenceStatusValid     EvidenceStatus = "VALID"
	EvidenceStatusIllegible EvidenceStatus = "ILLEGIBLE"
	EvidenceStatusReplaced  EvidenceStatus = "REPLACED"
	EvidenceStatusLocked    EvidenceStatus = "LOCKED"
)

// IsValid returns true if the status is a recognized value.
func (s EvidenceStatus) IsValid() bool {
	switch s {
	case EvidenceStatusValid, EvidenceStatusIllegible, EvidenceStatusReplaced, EvidenceStatusLocked:
		return true
	}
	return false
}

// IsLegible reports whether the evidence passed validation at some point.
func (s EvidenceStatus) IsLegible() bool {
	return s == EvidenceStatusValid || s == EvidenceStatusReplaced
}

// =============================================================================
// Photo Evidence
// =============================================================================

// MaxReplacementAttempts is the default cap on how many times a single
// evidence photo may be replaced before it locks. The attempt after the cap
// is rejected without running OCR again. The effective cap is configured on
// the evidence service.
const MaxReplacementAttempts = 2

// PhotoEvidence is a single uploaded evidence image belonging to a report.
type PhotoEvidence struct {
	ID            uuid.UUID
	ReportID      uuid.UUID
	Kind          EvidenceKind
	StorageRef    string
	Status        EvidenceStatus
	OCRText       string
	OCRConfidence float64
	Attempts      int // replacement attempts consumed so far
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanReplace reports whether another replacement attempt is allowed under
// the given cap.
func (e *PhotoEvidence) CanReplace(maxAttempts int) bool {
	return e.Status != EvidenceStatusLocked && e.Attempts < maxAttempts
}

// NextStatus computes the state a replacement attempt lands in. passed is the
// outcome of OCR plus kind-specific content validation; attempts is the
// counter after the increment.
func NextStatus(passed bool, attempts, maxAttempts int) EvidenceStatus {
	if passed {
		return EvidenceStatusReplaced
	}
	if attempts >= maxAttempts {
		return EvidenceStatusLocked
	}
	return EvidenceStatusIllegible
}

// InitialStatus computes the state a fresh upload lands in.
func InitialStatus(passed bool) EvidenceStatus {
	if passed {
		return EvidenceStatusValid
	}
	return EvidenceStatusIllegible
}

// EvidenceHistory is an append-only record of a replaced storage reference.
type EvidenceHistory struct {
	ID          uuid.UUID
	EvidenceID  uuid.UUID
	PreviousRef string
	Reason      string
	CreatedAt   time.Time
}

// CreateEvidenceParams contains parameters for attaching evidence to a report.
type CreateEvidenceParams struct {
	ReportID   uuid.UUID
	Kind       EvidenceKind
	StorageRef string
}
