package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
)

const incidentColumns = `id, report_id, description, decision, justification,
	approver_id, status, closed_at, created_at`

func scanIncident(row interface{ Scan(...any) error }) (*domain.Incident, error) {
	var i domain.Incident
	err := row.Scan(&i.ID, &i.ReportID, &i.Description, &i.Decision,
		&i.Justification, &i.ApproverID, &i.Status, &i.ClosedAt, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateIncident records a driver-raised incident with its assigned approver.
func (q *Queries) CreateIncident(ctx context.Context, p domain.CreateIncidentParams, approverID uuid.UUID) (*domain.Incident, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO incidents (report_id, description, decision, justification, approver_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+incidentColumns,
		p.ReportID, p.Description, p.Decision, p.Justification, approverID)
	return scanIncident(row)
}

// GetIncidentByID fetches a single incident.
func (q *Queries) GetIncidentByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
	return scanIncident(row)
}

// CloseIncident moves an OPEN incident to CLOSED. The status guard means a
// repeated close affects zero rows, which the service reports as a conflict.
func (q *Queries) CloseIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE incidents
		SET status = $2, closed_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+incidentColumns,
		id, domain.IncidentStatusClosed, domain.IncidentStatusOpen)
	return scanIncident(row)
}

// ListIncidentsByApprover returns incidents awaiting or closed by an owner,
// newest first.
func (q *Queries) ListIncidentsByApprover(ctx context.Context, approverID uuid.UUID) ([]domain.Incident, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+incidentColumns+` FROM incidents
		WHERE approver_id = $1 ORDER BY created_at DESC`, approverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}
