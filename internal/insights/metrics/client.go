package metrics

import (
	"time"

	"crm_insights_backend/internal/insights/domain"
)

const (
	recentActivityWindow = 30 * day
	recentRevenueWindow  = 365 * day
)

// Health labels derived from the engagement score.
const (
	HealthStrong = "strong"
	HealthStable = "stable"
	HealthAtRisk = "at_risk"
)

// ClientMetrics is the fixed-shape result for one client.
type ClientMetrics struct {
	DaysSinceLastContact  int     `json:"daysSinceLastContact"`
	TotalActivityCount    int     `json:"totalActivityCount"`
	RecentActivityCount   int     `json:"recentActivityCount"`
	TotalProjectCount     int     `json:"totalProjectCount"`
	ActiveProjectCount    int     `json:"activeProjectCount"`
	CompletedProjectCount int     `json:"completedProjectCount"`
	TotalRevenue          float64 `json:"totalRevenue"`
	RecentRevenue         float64 `json:"recentRevenue"`
	AvgProjectValue       float64 `json:"avgProjectValue"`
	EngagementScore       int     `json:"engagementScore"`
	HealthStatus          string  `json:"healthStatus"`
}

// ComputeClient derives ClientMetrics from h as of now.
func ComputeClient(h domain.ClientHistory, now time.Time) ClientMetrics {
	m := ClientMetrics{
		TotalActivityCount: len(h.Activities),
		TotalProjectCount:  len(h.Projects),
	}

	if last, ok := latestActivity(h.Activities); ok {
		m.DaysSinceLastContact = DaysBetween(last, now)
	} else {
		m.DaysSinceLastContact = DaysBetween(h.Client.CreatedAt, now)
	}

	activitySince := now.Add(-recentActivityWindow)
	for _, a := range h.Activities {
		if !a.CreatedAt.Before(activitySince) {
			m.RecentActivityCount++
		}
	}

	revenueSince := now.Add(-recentRevenueWindow)
	for _, p := range h.Projects {
		if domain.IsOpenProject(p.Status) {
			m.ActiveProjectCount++
		}
		if p.Status == domain.ProjectCompleted {
			m.CompletedProjectCount++
		}
		m.TotalRevenue += p.Value
		if withinWindow(p.CreatedAt, revenueSince) || (p.CompletedDate != nil && withinWindow(*p.CompletedDate, revenueSince)) {
			m.RecentRevenue += p.Value
		}
	}
	if m.TotalProjectCount > 0 {
		m.AvgProjectValue = m.TotalRevenue / float64(m.TotalProjectCount)
	}

	m.EngagementScore = EngagementScore(EngagementInputs{
		DaysSinceLastContact:  m.DaysSinceLastContact,
		RecentActivityCount:   m.RecentActivityCount,
		ActiveProjectCount:    m.ActiveProjectCount,
		CompletedProjectCount: m.CompletedProjectCount,
		TotalProjectCount:     m.TotalProjectCount,
	})
	m.HealthStatus = HealthStatus(m.EngagementScore)
	return m
}

// HealthStatus labels an engagement score.
func HealthStatus(score int) string {
	switch {
	case score >= 75:
		return HealthStrong
	case score >= 40:
		return HealthStable
	default:
		return HealthAtRisk
	}
}

func withinWindow(t, since time.Time) bool {
	return !t.Before(since)
}
