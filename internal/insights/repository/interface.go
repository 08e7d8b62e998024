package repository

import (
	"context"
	"time"

	"crm_insights_backend/internal/insights/domain"

	"github.com/google/uuid"
)

// LeadHistoryReader loads one lead and its related collections.
type LeadHistoryReader interface {
	GetLead(ctx context.Context, scope Scope, id uuid.UUID) (domain.Lead, error)
	ListLeadActivities(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.Activity, error)
	ListLeadFiles(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.LeadFile, error)
	ListStageTransitions(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.StageTransition, error)
}

// ClientHistoryReader loads one client and its related collections.
type ClientHistoryReader interface {
	GetClient(ctx context.Context, scope Scope, id uuid.UUID) (domain.Client, error)
	ListClientActivities(ctx context.Context, organizationID, clientID uuid.UUID) ([]domain.Activity, error)
	ListClientProjects(ctx context.Context, organizationID, clientID uuid.UUID) ([]domain.Project, error)
}

// SnapshotReader loads the organization-wide collections the dashboard
// aggregates over. Each call is an independent query.
type SnapshotReader interface {
	ListLeads(ctx context.Context, scope Scope) ([]domain.Lead, error)
	ListClients(ctx context.Context, scope Scope) ([]domain.Client, error)
	ListProjects(ctx context.Context, scope Scope) ([]domain.Project, error)
}

// HealthScoreWriter persists the cached engagement score of a client.
type HealthScoreWriter interface {
	UpdateClientHealthScore(ctx context.Context, organizationID, clientID uuid.UUID, score int, at time.Time) error
}

// OrganizationLister enumerates tenants that own client records.
type OrganizationLister interface {
	ListOrganizationIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Store is the full record-store surface used by the insights service.
type Store interface {
	LeadHistoryReader
	ClientHistoryReader
	SnapshotReader
	HealthScoreWriter
	OrganizationLister
}

var _ Store = (*Repository)(nil)
