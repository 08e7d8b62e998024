package repository

import (
	"context"
	"errors"
	"fmt"

	"crm_insights_backend/internal/insights/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, owner_id, title, value::float8, stage, quote_sent_at, deal_closed_at, created_at, updated_at`

const getLeadQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		AND ($3::uuid IS NULL OR owner_id = $3)
`

const listLeadsQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE organization_id = $1 AND deleted_at IS NULL
		AND ($2::uuid IS NULL OR owner_id = $2)
	ORDER BY created_at ASC, id ASC
`

const listLeadActivitiesQuery = `
	SELECT a.id, a.lead_id, a.client_id, a.kind, a.created_at
	FROM activities a
	WHERE a.lead_id = $1 AND a.organization_id = $2
	ORDER BY a.created_at ASC
`

const listLeadFilesQuery = `
	SELECT f.id, f.lead_id, f.file_name, f.created_at
	FROM lead_files f
	WHERE f.lead_id = $1 AND f.organization_id = $2
	ORDER BY f.created_at ASC
`

const listStageTransitionsQuery = `
	SELECT t.lead_id, t.from_stage, t.to_stage, t.created_at
	FROM lead_stage_transitions t
	WHERE t.lead_id = $1 AND t.organization_id = $2
	ORDER BY t.created_at ASC
`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.Title,
		&l.Value,
		&l.Stage,
		&l.QuoteSentAt,
		&l.DealClosedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

// GetLead returns ErrNotFound when the lead does not exist or lies outside
// the scope.
func (r *Repository) GetLead(ctx context.Context, scope Scope, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, getLeadQuery, id, scope.OrganizationID, scope.OwnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) ListLeads(ctx context.Context, scope Scope) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, listLeadsQuery, scope.OrganizationID, scope.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (r *Repository) ListLeadActivities(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.Activity, error) {
	return r.listActivities(ctx, listLeadActivitiesQuery, leadID, organizationID)
}

func (r *Repository) listActivities(ctx context.Context, query string, parentID, organizationID uuid.UUID) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, query, parentID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.ClientID, &a.Kind, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

func (r *Repository) ListLeadFiles(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.LeadFile, error) {
	rows, err := r.pool.Query(ctx, listLeadFilesQuery, leadID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list lead files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.LeadFile, 0)
	for rows.Next() {
		var f domain.LeadFile
		if err := rows.Scan(&f.ID, &f.LeadID, &f.FileName, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lead files: %w", err)
	}
	return files, nil
}

func (r *Repository) ListStageTransitions(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.StageTransition, error) {
	rows, err := r.pool.Query(ctx, listStageTransitionsQuery, leadID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list stage transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]domain.StageTransition, 0)
	for rows.Next() {
		var t domain.StageTransition
		if err := rows.Scan(&t.LeadID, &t.FromStage, &t.ToStage, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stage transitions: %w", err)
	}
	return transitions, nil
}
