package flags

import (
	"fmt"

	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/metrics"
)

const (
	leadNoContactMedium    = 14
	leadNoContactHigh      = 30
	leadLongPipelineMedium = 60
	leadLongPipelineHigh   = 90
	highValueLead          = 50000
	highValueStaleDays     = 7
	noActivityGraceDays    = 3
)

// EvaluateLead runs the lead rules. Closed leads (Won or Lost) get no flags.
func EvaluateLead(m metrics.LeadMetrics, lead domain.Lead) []Flag {
	flags := make([]Flag, 0, 5)
	if domain.IsClosedStage(lead.Stage) {
		return flags
	}

	switch {
	case m.DaysSinceLastContact >= leadNoContactHigh:
		flags = append(flags, Flag{
			Type:     NoContact,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("No contact for %d days", m.DaysSinceLastContact),
			Icon:     "phone-off",
		})
	case m.DaysSinceLastContact >= leadNoContactMedium:
		flags = append(flags, Flag{
			Type:     NoContact,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("No contact for %d days", m.DaysSinceLastContact),
			Icon:     "phone-off",
		})
	}

	switch {
	case m.DaysInPipeline >= leadLongPipelineHigh:
		flags = append(flags, Flag{
			Type:     LongPipeline,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("In the pipeline for %d days", m.DaysInPipeline),
			Icon:     "hourglass",
		})
	case m.DaysInPipeline >= leadLongPipelineMedium:
		flags = append(flags, Flag{
			Type:     LongPipeline,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("In the pipeline for %d days", m.DaysInPipeline),
			Icon:     "hourglass",
		})
	}

	if lead.Value >= highValueLead && m.DaysSinceLastContact >= highValueStaleDays {
		flags = append(flags, Flag{
			Type:     HighValueStale,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("High-value lead (%s) without contact for %d days", amount(lead.Value), m.DaysSinceLastContact),
			Icon:     "alert-triangle",
		})
	}

	if m.ActivityCount == 0 && m.DaysInPipeline >= noActivityGraceDays {
		flags = append(flags, Flag{
			Type:     NoActivity,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("No activity logged in %d days", m.DaysInPipeline),
			Icon:     "inbox",
		})
	}

	if isHighProbability(m, lead) {
		flags = append(flags, Flag{
			Type:     HighProbability,
			Severity: SeverityPositive,
			Message:  "Strong buying signals, likely to close",
			Icon:     "trending-up",
		})
	}

	return flags
}

// isHighProbability is a fixed heuristic: any one of the four signals is
// enough.
func isHighProbability(m metrics.LeadMetrics, lead domain.Lead) bool {
	recentWithFiles := m.DaysSinceLastContact <= 3 && m.FileCount >= 2
	lateStageWarm := (lead.Stage == domain.StageQuoted || lead.Stage == domain.StageNegotiation) && m.DaysSinceLastContact <= 7
	busyAndFresh := m.ActivityCount >= 5 && m.DaysInPipeline <= 30
	quickQuote := m.DaysToQuotation != nil && *m.DaysToQuotation <= 14
	return recentWithFiles || lateStageWarm || busyAndFresh || quickQuote
}
