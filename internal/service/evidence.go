// This file implements the photo evidence state machine: OCR on upload,
// pending tasks for illegible photos, capped replacement attempts, locking,
// and the operator unlock path.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/ocr"
	"github.com/pilotos/fleetcore/internal/repository"
)

// EvidenceService defines evidence-related operations.
type EvidenceService interface {
	// Attach uploads fresh evidence onto a report. The report's driver must
	// clear the pending-task gate first; an illegible result creates a
	// blocking task for them.
	// Returns domain.EGATED when the driver has unresolved tasks.
	Attach(ctx context.Context, reportID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*AttachResult, error)

	// AttachCleared is Attach without the gate check, for callers that
	// already cleared the gate in the same operation (report submission).
	AttachCleared(ctx context.Context, reportID uuid.UUID, driverID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*AttachResult, error)

	// Replace runs one replacement attempt against illegible evidence.
	// Returns domain.ELOCKED when the attempt budget is exhausted; the
	// attempt that finds the budget spent locks the photo without running
	// OCR.
	Replace(ctx context.Context, evidenceID uuid.UUID, newRef, reason string) (*domain.PhotoEvidence, error)

	// Unlock reopens a locked photo on the strength of a closed incident.
	// Only the incident's approver may unlock, and the incident must belong
	// to the same report as the evidence.
	Unlock(ctx context.Context, evidenceID, incidentID, actorID uuid.UUID, reason string) (*domain.PhotoEvidence, error)

	// GetByID retrieves one evidence record.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PhotoEvidence, error)

	// ListByReport returns all evidence attached to a report.
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error)

	// History returns the replacement history of one evidence record.
	History(ctx context.Context, evidenceID uuid.UUID) ([]domain.EvidenceHistory, error)
}

// AttachResult is what an upload reports back: the stored evidence and the
// blocking task, when the photo came back illegible.
type AttachResult struct {
	Evidence *domain.PhotoEvidence
	Task     *domain.PendingTask
}

// evidenceStore is the slice of the repository the service needs.
type evidenceStore interface {
	GetEvidenceByID(ctx context.Context, id uuid.UUID) (*domain.PhotoEvidence, error)
	ListEvidenceByReport(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error)
	InsertEvidence(ctx context.Context, p repository.InsertEvidenceParams) (*domain.PhotoEvidence, *domain.PendingTask, error)
	ApplyReplacement(ctx context.Context, p repository.ReplacementParams) (*domain.PhotoEvidence, error)
	LockEvidence(ctx context.Context, id uuid.UUID) error
	UnlockEvidence(ctx context.Context, id uuid.UUID, reason string) (*domain.PhotoEvidence, error)
	ListEvidenceHistory(ctx context.Context, evidenceID uuid.UUID) ([]domain.EvidenceHistory, error)
	GetReportByID(ctx context.Context, id uuid.UUID) (*domain.DailyReport, error)
	GetIncidentByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
}

type evidenceService struct {
	store       evidenceStore
	gate        *TaskGate
	ocr         ocr.Provider
	threshold   float64
	maxAttempts int
	logger      *slog.Logger
}

// NewEvidenceService creates a new EvidenceService. threshold is the OCR
// confidence percentage below which a photo counts as illegible;
// maxReplacements is the replacement budget before a photo locks.
func NewEvidenceService(store evidenceStore, gate *TaskGate, provider ocr.Provider, threshold float64, maxReplacements int, logger *slog.Logger) EvidenceService {
	if maxReplacements < 1 {
		maxReplacements = domain.MaxReplacementAttempts
	}
	return &evidenceService{
		store:       store,
		gate:        gate,
		ocr:         provider,
		threshold:   threshold,
		maxAttempts: maxReplacements,
		logger:      logger,
	}
}

// examine runs OCR plus kind-specific content validation. An OCR engine
// failure is treated as an illegible photo, not an operation failure: the
// driver gets a pending task instead of a 500.
func (s *evidenceService) examine(ctx context.Context, kind domain.EvidenceKind, ref string) (passed bool, result ocr.Result) {
	start := time.Now()
	extracted, err := s.ocr.Extract(ctx, ref)
	metrics.OCRDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		s.logger.Warn("ocr extraction failed, treating photo as illegible",
			"storage_ref", ref,
			"error", err)
		return false, ocr.Result{}
	}
	metrics.OCRRequests.WithLabelValues("ok").Inc()

	result = *extracted
	if !result.Legible(s.threshold) {
		return false, result
	}

	var check ocr.TicketCheck
	switch kind {
	case domain.EvidenceKindMeter:
		check = ocr.ValidateMeterTicket(result.Text)
	case domain.EvidenceKindFuel:
		check = ocr.ValidateFuelTicket(result.Text)
	default:
		return false, result
	}
	return check.Valid, result
}

func (s *evidenceService) Attach(ctx context.Context, reportID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*AttachResult, error) {
	const op = "evidence.attach"

	report, err := s.store.GetReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", reportID.String())
		}
		return nil, domain.Internal(err, op, "failed to load report")
	}

	if err := s.gate.Check(ctx, op, report.DriverID); err != nil {
		return nil, err
	}
	return s.AttachCleared(ctx, reportID, report.DriverID, kind, storageRef)
}

func (s *evidenceService) AttachCleared(ctx context.Context, reportID uuid.UUID, driverID uuid.UUID, kind domain.EvidenceKind, storageRef string) (*AttachResult, error) {
	const op = "evidence.attach"

	if !kind.IsValid() {
		return nil, domain.Invalid(op, "unknown evidence kind")
	}
	if storageRef == "" {
		return nil, domain.Invalid(op, "storage_ref is required")
	}

	passed, result := s.examine(ctx, kind, storageRef)
	status := domain.InitialStatus(passed)

	ev, task, err := s.store.InsertEvidence(ctx, repository.InsertEvidenceParams{
		ReportID:      reportID,
		Kind:          kind,
		StorageRef:    storageRef,
		Status:        status,
		OCRText:       result.Text,
		OCRConfidence: result.Confidence,
		TaskDriverID:  driverID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store evidence")
	}

	metrics.EvidenceProcessed.WithLabelValues(string(kind), string(status)).Inc()
	s.logger.Info("evidence attached",
		"evidence_id", ev.ID,
		"report_id", reportID,
		"kind", kind,
		"status", status,
		"confidence", result.Confidence)

	return &AttachResult{Evidence: ev, Task: task}, nil
}

func (s *evidenceService) Replace(ctx context.Context, evidenceID uuid.UUID, newRef, reason string) (*domain.PhotoEvidence, error) {
	const op = "evidence.replace"

	if newRef == "" {
		return nil, domain.Invalid(op, "storage_ref is required")
	}

	ev, err := s.store.GetEvidenceByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "evidence", evidenceID.String())
		}
		return nil, domain.Internal(err, op, "failed to load evidence")
	}

	switch ev.Status {
	case domain.EvidenceStatusLocked:
		return nil, domain.Locked(op)
	case domain.EvidenceStatusValid, domain.EvidenceStatusReplaced:
		return nil, domain.Conflict(op, domain.RuleEvidenceMaxRetries, "evidence is already legible")
	}

	// The attempt that finds the budget spent locks the photo. OCR never
	// runs for it.
	if !ev.CanReplace(s.maxAttempts) {
		if err := s.store.LockEvidence(ctx, evidenceID); err != nil {
			return nil, domain.Internal(err, op, "failed to lock evidence")
		}
		metrics.EvidenceLocked.Inc()
		s.logger.Warn("evidence locked, replacement budget exhausted",
			"evidence_id", evidenceID,
			"attempts", ev.Attempts)
		return nil, domain.Locked(op)
	}

	passed, result := s.examine(ctx, ev.Kind, newRef)
	attempts := ev.Attempts + 1
	status := domain.NextStatus(passed, attempts, s.maxAttempts)

	updated, err := s.store.ApplyReplacement(ctx, repository.ReplacementParams{
		EvidenceID:    evidenceID,
		NewRef:        newRef,
		PreviousRef:   ev.StorageRef,
		Reason:        reason,
		Status:        status,
		OCRText:       result.Text,
		OCRConfidence: result.Confidence,
		ResolveTask:   passed,
		ReportID:      ev.ReportID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to apply replacement")
	}

	metrics.EvidenceProcessed.WithLabelValues(string(ev.Kind), string(status)).Inc()
	if status == domain.EvidenceStatusLocked {
		metrics.EvidenceLocked.Inc()
	}
	s.logger.Info("evidence replacement processed",
		"evidence_id", evidenceID,
		"status", status,
		"attempts", attempts,
		"confidence", result.Confidence)

	return updated, nil
}

func (s *evidenceService) Unlock(ctx context.Context, evidenceID, incidentID, actorID uuid.UUID, reason string) (*domain.PhotoEvidence, error) {
	const op = "evidence.unlock"

	ev, err := s.store.GetEvidenceByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "evidence", evidenceID.String())
		}
		return nil, domain.Internal(err, op, "failed to load evidence")
	}
	if ev.Status != domain.EvidenceStatusLocked {
		return nil, domain.Conflict(op, domain.RuleEvidenceUnlock, "evidence is not locked")
	}

	incident, err := s.store.GetIncidentByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "incident", incidentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load incident")
	}
	if incident.ReportID != ev.ReportID {
		return nil, domain.InvalidRule(op, domain.RuleEvidenceUnlock, "incident does not cover this report")
	}
	if incident.Status != domain.IncidentStatusClosed {
		return nil, domain.InvalidRule(op, domain.RuleEvidenceUnlock, "incident is still open")
	}
	if incident.ApproverID != actorID {
		return nil, domain.Forbidden(op, "only the incident approver may unlock evidence")
	}

	updated, err := s.store.UnlockEvidence(ctx, evidenceID, reason)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to unlock evidence")
	}

	s.logger.Info("evidence unlocked",
		"evidence_id", evidenceID,
		"incident_id", incidentID,
		"actor_id", actorID)
	return updated, nil
}

func (s *evidenceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhotoEvidence, error) {
	const op = "evidence.get"

	ev, err := s.store.GetEvidenceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "evidence", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load evidence")
	}
	return ev, nil
}

func (s *evidenceService) ListByReport(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error) {
	const op = "evidence.list"

	out, err := s.store.ListEvidenceByReport(ctx, reportID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list evidence")
	}
	return out, nil
}

func (s *evidenceService) History(ctx context.Context, evidenceID uuid.UUID) ([]domain.EvidenceHistory, error) {
	const op = "evidence.history"

	out, err := s.store.ListEvidenceHistory(ctx, evidenceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load evidence history")
	}
	return out, nil
}
