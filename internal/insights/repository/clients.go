package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_insights_backend/internal/insights/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const clientColumns = `c.id, c.owner_id, c.name, c.status, c.lifetime_revenue::float8, c.health_score, c.created_at`

const getClientQuery = `
	SELECT ` + clientColumns + `
	FROM clients c
	WHERE c.id = $1 AND c.organization_id = $2 AND c.deleted_at IS NULL
		AND ($3::uuid IS NULL OR c.owner_id = $3)
`

const listClientsQuery = `
	SELECT ` + clientColumns + `
	FROM clients c
	WHERE c.organization_id = $1 AND c.deleted_at IS NULL
		AND ($2::uuid IS NULL OR c.owner_id = $2)
	ORDER BY c.created_at ASC, c.id ASC
`

const listClientActivitiesQuery = `
	SELECT a.id, a.lead_id, a.client_id, a.kind, a.created_at
	FROM activities a
	WHERE a.client_id = $1 AND a.organization_id = $2
	ORDER BY a.created_at ASC
`

const projectColumns = `p.id, p.client_id, p.name, p.status, p.value::float8, p.start_date, p.completed_date, p.created_at`

const listClientProjectsQuery = `
	SELECT ` + projectColumns + `
	FROM projects p
	WHERE p.client_id = $1 AND p.organization_id = $2 AND p.deleted_at IS NULL
	ORDER BY p.created_at ASC, p.id ASC
`

// Projects carry no owner; they inherit the owner of their client.
const listProjectsQuery = `
	SELECT ` + projectColumns + `
	FROM projects p
	JOIN clients c ON c.id = p.client_id AND c.deleted_at IS NULL
	WHERE p.organization_id = $1 AND p.deleted_at IS NULL
		AND ($2::uuid IS NULL OR c.owner_id = $2)
	ORDER BY p.created_at ASC, p.id ASC
`

const updateHealthScoreQuery = `
	UPDATE clients
	SET health_score = $3, health_score_updated_at = $4
	WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
`

const listOrganizationIDsQuery = `
	SELECT DISTINCT organization_id
	FROM clients
	WHERE deleted_at IS NULL
	ORDER BY organization_id
`

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Status,
		&c.LifetimeRevenue,
		&c.HealthScore,
		&c.CreatedAt,
	)
	return c, err
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.Name,
		&p.Status,
		&p.Value,
		&p.StartDate,
		&p.CompletedDate,
		&p.CreatedAt,
	)
	return p, err
}

// GetClient returns ErrNotFound when the client does not exist or lies
// outside the scope.
func (r *Repository) GetClient(ctx context.Context, scope Scope, id uuid.UUID) (domain.Client, error) {
	client, err := scanClient(r.pool.QueryRow(ctx, getClientQuery, id, scope.OrganizationID, scope.OwnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, ErrNotFound
	}
	if err != nil {
		return domain.Client{}, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

func (r *Repository) ListClients(ctx context.Context, scope Scope) ([]domain.Client, error) {
	rows, err := r.pool.Query(ctx, listClientsQuery, scope.OrganizationID, scope.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (r *Repository) ListClientActivities(ctx context.Context, organizationID, clientID uuid.UUID) ([]domain.Activity, error) {
	return r.listActivities(ctx, listClientActivitiesQuery, clientID, organizationID)
}

func (r *Repository) ListClientProjects(ctx context.Context, organizationID, clientID uuid.UUID) ([]domain.Project, error) {
	return r.listProjects(ctx, listClientProjectsQuery, clientID, organizationID)
}

func (r *Repository) ListProjects(ctx context.Context, scope Scope) ([]domain.Project, error) {
	return r.listProjects(ctx, listProjectsQuery, scope.OrganizationID, scope.OwnerID)
}

func (r *Repository) listProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateClientHealthScore returns ErrNotFound when no live client matched.
func (r *Repository) UpdateClientHealthScore(ctx context.Context, organizationID, clientID uuid.UUID, score int, at time.Time) error {
	tag, err := r.pool.Exec(ctx, updateHealthScoreQuery, clientID, organizationID, score, at)
	if err != nil {
		return fmt.Errorf("update health score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListOrganizationIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, listOrganizationIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan organization id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return ids, nil
}
