package analytics

import (
	"time"

	"crm_insights_backend/internal/insights/domain"
)

// Snapshot is the input of Build. The three collections are read
// independently, so they need not describe one instant.
type Snapshot struct {
	Leads    []domain.Lead
	Clients  []domain.Client
	Projects []domain.Project
}

// Records is the number of rows the snapshot carries.
func (s Snapshot) Records() int {
	return len(s.Leads) + len(s.Clients) + len(s.Projects)
}

// Dashboard is the aggregate view returned to the dashboard endpoint.
type Dashboard struct {
	Period                 Period             `json:"period"`
	GeneratedAt            time.Time          `json:"generatedAt"`
	Summary                PipelineSummary    `json:"summary"`
	Funnel                 Funnel             `json:"funnel"`
	TimeToMilestone        Milestones         `json:"timeToMilestone"`
	StalledLeads           []StalledLead      `json:"stalledLeads"`
	ProjectsAtRisk         []ProjectAtRisk    `json:"projectsAtRisk"`
	RevenueConcentration   Concentration      `json:"revenueConcentration"`
	PeriodRevenue          float64            `json:"periodRevenue"`
	RevenueByProjectStatus map[string]float64 `json:"revenueByProjectStatus"`
}

// Build computes every dashboard block from s as of now.
func Build(s Snapshot, period Period, now time.Time) Dashboard {
	return Dashboard{
		Period:                 period,
		GeneratedAt:            now,
		Summary:                SummarizePipeline(s.Leads),
		Funnel:                 BuildFunnel(s.Leads),
		TimeToMilestone:        BuildMilestones(s.Leads),
		StalledLeads:           FindStalledLeads(s.Leads, now),
		ProjectsAtRisk:         FindProjectsAtRisk(s.Projects, now),
		RevenueConcentration:   MeasureConcentration(s.Clients),
		PeriodRevenue:          PeriodRevenue(s.Projects, period, now),
		RevenueByProjectStatus: RevenueByStatus(s.Projects),
	}
}
