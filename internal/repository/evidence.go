package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const evidenceColumns = `id, report_id, kind, storage_ref, status, ocr_text,
	ocr_confidence, attempts, created_at, updated_at`

func scanEvidence(row interface{ Scan(...any) error }) (*domain.PhotoEvidence, error) {
	var e domain.PhotoEvidence
	err := row.Scan(&e.ID, &e.ReportID, &e.Kind, &e.StorageRef, &e.Status,
		&e.OCRText, &e.OCRConfidence, &e.Attempts, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEvidenceByID fetches a single evidence record.
func (q *Queries) GetEvidenceByID(ctx context.Context, id uuid.UUID) (*domain.PhotoEvidence, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+evidenceColumns+` FROM photo_evidence WHERE id = $1`, id)
	return scanEvidence(row)
}

// ListEvidenceByReport returns all evidence attached to a report.
func (q *Queries) ListEvidenceByReport(ctx context.Context, reportID uuid.UUID) ([]domain.PhotoEvidence, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+evidenceColumns+` FROM photo_evidence WHERE report_id = $1 ORDER BY created_at`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PhotoEvidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// InsertEvidenceParams describes a fresh evidence row plus, when the photo
// came back illegible, the pending task that must exist for it.
type InsertEvidenceParams struct {
	ReportID      uuid.UUID
	Kind          domain.EvidenceKind
	StorageRef    string
	Status        domain.EvidenceStatus
	OCRText       string
	OCRConfidence float64
	TaskDriverID  uuid.UUID // driver to block when Status is ILLEGIBLE
}

// InsertEvidence creates the evidence row and, for an illegible result, the
// blocking pending task in one transaction, both or neither. The task is
// skipped if an unresolved one already references this evidence (cannot
// happen on insert, but the guard keeps the operation idempotent under
// retries).
func (q *Queries) InsertEvidence(ctx context.Context, p InsertEvidenceParams) (*domain.PhotoEvidence, *domain.PendingTask, error) {
	var ev *domain.PhotoEvidence
	var task *domain.PendingTask

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO photo_evidence (report_id, kind, storage_ref, status,
				ocr_text, ocr_confidence, attempts)
			VALUES ($1, $2, $3, $4, $5, $6, 0)
			RETURNING `+evidenceColumns,
			p.ReportID, p.Kind, p.StorageRef, p.Status, p.OCRText, p.OCRConfidence)

		var err error
		ev, err = scanEvidence(row)
		if err != nil {
			return fmt.Errorf("insert evidence: %w", err)
		}

		if p.Status != domain.EvidenceStatusIllegible {
			return nil
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pending_tasks
				WHERE entity_id = $1 AND kind = $2 AND NOT resolved
			)`, ev.ID, domain.TaskKindIllegibleEvidence).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check existing task: %w", err)
		}
		if exists {
			return nil
		}

		taskRow := tx.QueryRowContext(ctx, `
			INSERT INTO pending_tasks (driver_id, kind, entity_id)
			VALUES ($1, $2, $3)
			RETURNING id, driver_id, kind, entity_id, resolved, resolved_at, created_at`,
			p.TaskDriverID, domain.TaskKindIllegibleEvidence, ev.ID)

		task = &domain.PendingTask{}
		err = taskRow.Scan(&task.ID, &task.DriverID, &task.Kind, &task.EntityID,
			&task.Resolved, &task.ResolvedAt, &task.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert pending task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ev, task, nil
}

// ReplacementParams describes the full effect of one replacement attempt.
type ReplacementParams struct {
	EvidenceID    uuid.UUID
	NewRef        string
	PreviousRef   string
	Reason        string
	Status        domain.EvidenceStatus
	OCRText       string
	OCRConfidence float64
	// ResolveTask flips the blocking task and the owning report when the
	// replacement passed.
	ResolveTask bool
	ReportID    uuid.UUID
}

// ApplyReplacement applies one replacement attempt atomically: append the old
// reference to the history, update the evidence row (incrementing the attempt
// counter), and, on a passing attempt, resolve the blocking task and move
// the report to PHOTO_REPLACED. Either every step lands or none do.
func (q *Queries) ApplyReplacement(ctx context.Context, p ReplacementParams) (*domain.PhotoEvidence, error) {
	var ev *domain.PhotoEvidence

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_history (evidence_id, previous_ref, reason)
			VALUES ($1, $2, $3)`,
			p.EvidenceID, p.PreviousRef, p.Reason)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE photo_evidence
			SET storage_ref = $2, status = $3, ocr_text = $4,
				ocr_confidence = $5, attempts = attempts + 1, updated_at = now()
			WHERE id = $1
			RETURNING `+evidenceColumns,
			p.EvidenceID, p.NewRef, p.Status, p.OCRText, p.OCRConfidence)

		ev, err = scanEvidence(row)
		if err != nil {
			return fmt.Errorf("update evidence: %w", err)
		}

		if !p.ResolveTask {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE pending_tasks
			SET resolved = TRUE, resolved_at = now()
			WHERE entity_id = $1 AND kind = $2 AND NOT resolved`,
			p.EvidenceID, domain.TaskKindIllegibleEvidence)
		if err != nil {
			return fmt.Errorf("resolve task: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE daily_reports SET status = $2
			WHERE id = $1 AND status = $3`,
			p.ReportID, domain.ReportStatusPhotoReplaced, domain.ReportStatusSubmitted)
		if err != nil {
			return fmt.Errorf("flip report status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// LockEvidence marks the evidence LOCKED. Used when a replacement attempt
// arrives after the cap is already exhausted.
func (q *Queries) LockEvidence(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE photo_evidence SET status = $2, updated_at = now()
		WHERE id = $1`, id, domain.EvidenceStatusLocked)
	return err
}

// UnlockEvidence reopens a locked photo with a fresh attempt budget and
// records why in the history. Operator action, guarded by the service.
func (q *Queries) UnlockEvidence(ctx context.Context, id uuid.UUID, reason string) (*domain.PhotoEvidence, error) {
	var ev *domain.PhotoEvidence

	err := q.withTx(ctx, func(tx *sql.Tx) error {
		var currentRef string
		if err := tx.QueryRowContext(ctx,
			`SELECT storage_ref FROM photo_evidence WHERE id = $1`, id).Scan(&currentRef); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_history (evidence_id, previous_ref, reason)
			VALUES ($1, $2, $3)`, id, currentRef, reason)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE photo_evidence
			SET status = $2, attempts = 0, updated_at = now()
			WHERE id = $1
			RETURNING `+evidenceColumns,
			id, domain.EvidenceStatusIllegible)

		ev, err = scanEvidence(row)
		if err != nil {
			return fmt.Errorf("unlock evidence: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvidenceHistory returns the replacement history oldest first.
func (q *Queries) ListEvidenceHistory(ctx context.Context, evidenceID uuid.UUID) ([]domain.EvidenceHistory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, evidence_id, previous_ref, reason, created_at
		FROM evidence_history WHERE evidence_id = $1 ORDER BY created_at`, evidenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EvidenceHistory
	for rows.Next() {
		var h domain.EvidenceHistory
		if err := rows.Scan(&h.ID, &h.EvidenceID, &h.PreviousRef, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
