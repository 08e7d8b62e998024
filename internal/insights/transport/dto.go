package transport

import (
	"time"

	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/flags"
	"crm_insights_backend/internal/insights/metrics"

	"github.com/google/uuid"
)

// LeadInsightsResponse is attached to a lead read.
type LeadInsightsResponse struct {
	LeadID           uuid.UUID           `json:"leadId"`
	Stage            string              `json:"stage"`
	Metrics          metrics.LeadMetrics `json:"metrics"`
	Flags            []flags.Flag        `json:"flags"`
	SuggestedActions []string            `json:"suggestedActions"`
	ComputedAt       time.Time           `json:"computedAt"`
}

// ClientInsightsResponse is attached to a client read.
type ClientInsightsResponse struct {
	ClientID         uuid.UUID             `json:"clientId"`
	Status           string                `json:"status"`
	Metrics          metrics.ClientMetrics `json:"metrics"`
	Flags            []flags.Flag          `json:"flags"`
	SuggestedActions []string              `json:"suggestedActions"`
	ComputedAt       time.Time             `json:"computedAt"`
}

// DashboardQuery binds the dashboard query string.
type DashboardQuery struct {
	Period string `form:"period" validate:"omitempty,oneof=week month quarter"`
}

// DashboardResponse wraps the computed dashboard. Cached is true when it was
// served from the dashboard cache.
type DashboardResponse struct {
	analytics.Dashboard
	Cached bool `json:"cached"`
}

// HealthRefreshResult summarizes one organization-wide score refresh.
type HealthRefreshResult struct {
	OrganizationID uuid.UUID `json:"organizationId"`
	ClientsUpdated int       `json:"clientsUpdated"`
	AtRiskCount    int       `json:"atRiskCount"`
	RefreshedAt    time.Time `json:"refreshedAt"`
}

// HealthRefreshResponse answers the admin refresh trigger. TaskID is set when
// the refresh was queued; Result when it ran inline.
type HealthRefreshResponse struct {
	OrganizationID uuid.UUID            `json:"organizationId"`
	Queued         bool                 `json:"queued"`
	TaskID         string               `json:"taskId,omitempty"`
	Result         *HealthRefreshResult `json:"result,omitempty"`
}
