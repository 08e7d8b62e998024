package metrics

import (
	"sort"
	"time"

	"crm_insights_backend/internal/insights/domain"
)

// StageSpan is one entry of a lead's stage timeline.
type StageSpan struct {
	Stage     string    `json:"stage"`
	EnteredAt time.Time `json:"enteredAt"`
	DaysSpent int       `json:"daysSpent"`
}

// LeadMetrics is the fixed-shape result for one lead.
type LeadMetrics struct {
	CurrentStage             string      `json:"currentStage"`
	Value                    float64     `json:"value"`
	DaysInPipeline           int         `json:"daysInPipeline"`
	DaysSinceLastContact     int         `json:"daysSinceLastContact"`
	ActivityCount            int         `json:"activityCount"`
	FileCount                int         `json:"fileCount"`
	DaysToQuotation          *int        `json:"daysToQuotation,omitempty"`
	DaysFromQuotationToClose *int        `json:"daysFromQuotationToClose,omitempty"`
	StageTimeline            []StageSpan `json:"stageTimeline"`
}

// ComputeLead derives LeadMetrics from h as of now.
func ComputeLead(h domain.LeadHistory, now time.Time) LeadMetrics {
	lead := h.Lead
	m := LeadMetrics{
		CurrentStage:   lead.Stage,
		Value:          lead.Value,
		DaysInPipeline: DaysBetween(lead.CreatedAt, now),
		ActivityCount:  len(h.Activities),
		FileCount:      len(h.Files),
	}

	if last, ok := latestActivity(h.Activities); ok {
		m.DaysSinceLastContact = DaysBetween(last, now)
	} else {
		m.DaysSinceLastContact = m.DaysInPipeline
	}

	transitions := sortedTransitions(h.Transitions)

	quotedAt, quoted := firstTransitionInto(transitions, domain.StageQuoted)
	if quoted {
		days := DaysBetween(lead.CreatedAt, quotedAt)
		m.DaysToQuotation = &days
	}
	if wonAt, won := firstTransitionInto(transitions, domain.StageWon); won && quoted {
		days := DaysBetween(quotedAt, wonAt)
		m.DaysFromQuotationToClose = &days
	}

	m.StageTimeline = stageTimeline(transitions, now)
	return m
}

// sortedTransitions returns an ascending copy. Rows sharing a timestamp keep
// their input order.
func sortedTransitions(in []domain.StageTransition) []domain.StageTransition {
	out := make([]domain.StageTransition, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func firstTransitionInto(sorted []domain.StageTransition, stage string) (time.Time, bool) {
	for _, t := range sorted {
		if t.ToStage == stage {
			return t.CreatedAt, true
		}
	}
	return time.Time{}, false
}

// stageTimeline pairs each transition with the next one; the last entry is
// still open and runs until now.
func stageTimeline(sorted []domain.StageTransition, now time.Time) []StageSpan {
	spans := make([]StageSpan, 0, len(sorted))
	for i, t := range sorted {
		exit := now
		if i+1 < len(sorted) {
			exit = sorted[i+1].CreatedAt
		}
		spans = append(spans, StageSpan{
			Stage:     t.ToStage,
			EnteredAt: t.CreatedAt,
			DaysSpent: DaysBetween(t.CreatedAt, exit),
		})
	}
	return spans
}

func latestActivity(activities []domain.Activity) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, a := range activities {
		if !found || a.CreatedAt.After(latest) {
			latest = a.CreatedAt
			found = true
		}
	}
	return latest, found
}
