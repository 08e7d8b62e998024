package flags

import (
	"fmt"
	"math"

	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/metrics"
)

const (
	clientNoContactMedium      = 60
	clientNoContactHigh        = 120
	decliningMinActivities     = 10
	decliningMinSilenceDays    = 30
	decliningRatio             = 0.5
	highValueClientRevenue     = 100000
	atRiskEngagementScore      = 40
	strongRelationshipMinScore = 75
)

// EvaluateClient runs the client rules.
func EvaluateClient(m metrics.ClientMetrics, client domain.Client) []Flag {
	flags := make([]Flag, 0, 4)

	switch {
	case m.DaysSinceLastContact >= clientNoContactHigh:
		flags = append(flags, Flag{
			Type:     NoContact,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("No contact with this client for %d days", m.DaysSinceLastContact),
			Icon:     "phone-off",
		})
	case m.DaysSinceLastContact >= clientNoContactMedium:
		flags = append(flags, Flag{
			Type:     NoContact,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("No contact with this client for %d days", m.DaysSinceLastContact),
			Icon:     "phone-off",
		})
	}

	if isDecliningEngagement(m) {
		flags = append(flags, Flag{
			Type:     DecliningEngagement,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("Only %d activities in the last 30 days, well below the usual pace", m.RecentActivityCount),
			Icon:     "trending-down",
		})
	}

	revenue := client.Revenue()
	if revenue >= highValueClientRevenue && (m.EngagementScore < atRiskEngagementScore || m.ActiveProjectCount == 0) {
		flags = append(flags, Flag{
			Type:     HighValueAtRisk,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("High-value client (%s lifetime) showing weak engagement", amount(revenue)),
			Icon:     "shield-alert",
		})
	}

	if m.EngagementScore >= strongRelationshipMinScore {
		flags = append(flags, Flag{
			Type:     StrongRelationship,
			Severity: SeverityPositive,
			Message:  fmt.Sprintf("Strong relationship (engagement %d/100)", m.EngagementScore),
			Icon:     "heart-handshake",
		})
	}

	return flags
}

// isDecliningEngagement compares recent activity with a monthly baseline.
// The baseline divides the lifetime count by months since last contact, not
// by client age; keep it that way until product says otherwise.
func isDecliningEngagement(m metrics.ClientMetrics) bool {
	if m.TotalActivityCount < decliningMinActivities || m.DaysSinceLastContact < decliningMinSilenceDays {
		return false
	}
	months := math.Max(1, float64(m.DaysSinceLastContact)/30)
	avgPerMonth := float64(m.TotalActivityCount) / months
	return float64(m.RecentActivityCount) < decliningRatio*avgPerMonth
}
