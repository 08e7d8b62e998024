package analytics

import (
	"math"
	"sort"
	"time"

	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/metrics"

	"github.com/google/uuid"
)

const stalledAfter = 30 * 24 * time.Hour

// FunnelStage is one step of the conversion funnel.
type FunnelStage struct {
	Stage       string `json:"stage"`
	Count       int    `json:"count"`
	DropOffRate int    `json:"dropOffRate"`
}

// Funnel holds the ordered stages plus the leads that left as Lost.
type Funnel struct {
	Stages    []FunnelStage `json:"stages"`
	LostCount int           `json:"lostCount"`
}

// Milestones is the average time from creation to quote and to close.
// Leads without the timestamp are left out of the sample.
type Milestones struct {
	AvgDaysToQuote int `json:"avgDaysToQuote"`
	QuotedLeads    int `json:"quotedLeads"`
	AvgDaysToClose int `json:"avgDaysToClose"`
	ClosedLeads    int `json:"closedLeads"`
}

// StalledLead is an open lead nobody has touched in over 30 days.
type StalledLead struct {
	LeadID      uuid.UUID  `json:"leadId"`
	Title       string     `json:"title"`
	Stage       string     `json:"stage"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty"`
	Value       float64    `json:"value"`
	DaysStalled int        `json:"daysStalled"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PipelineSummary counts leads by outcome.
type PipelineSummary struct {
	TotalLeads    int     `json:"totalLeads"`
	OpenLeads     int     `json:"openLeads"`
	WonLeads      int     `json:"wonLeads"`
	LostLeads     int     `json:"lostLeads"`
	WinRate       int     `json:"winRate"`
	PipelineValue float64 `json:"pipelineValue"`
	WonValue      float64 `json:"wonValue"`
}

// BuildFunnel counts leads per funnel stage. Each drop-off is relative to the
// previous stage's count and never negative.
func BuildFunnel(leads []domain.Lead) Funnel {
	counts := make(map[string]int, len(domain.FunnelStages)+1)
	for _, l := range leads {
		counts[l.Stage]++
	}

	stages := make([]FunnelStage, len(domain.FunnelStages))
	for i, name := range domain.FunnelStages {
		stages[i] = FunnelStage{Stage: name, Count: counts[name]}
		if i == 0 {
			continue
		}
		stages[i].DropOffRate = dropOff(stages[i-1].Count, stages[i].Count)
	}

	return Funnel{Stages: stages, LostCount: counts[domain.StageLost]}
}

func dropOff(prev, cur int) int {
	if prev == 0 {
		return 0
	}
	rate := int(math.Round(float64(prev-cur) / float64(prev) * 100))
	if rate < 0 {
		return 0
	}
	return rate
}

// BuildMilestones averages exact day differences, then rounds.
func BuildMilestones(leads []domain.Lead) Milestones {
	var (
		m                    Milestones
		quoteDays, closeDays float64
	)
	for _, l := range leads {
		if l.QuoteSentAt != nil {
			quoteDays += exactDays(l.CreatedAt, *l.QuoteSentAt)
			m.QuotedLeads++
		}
		if l.DealClosedAt != nil {
			closeDays += exactDays(l.CreatedAt, *l.DealClosedAt)
			m.ClosedLeads++
		}
	}
	if m.QuotedLeads > 0 {
		m.AvgDaysToQuote = int(math.Round(quoteDays / float64(m.QuotedLeads)))
	}
	if m.ClosedLeads > 0 {
		m.AvgDaysToClose = int(math.Round(closeDays / float64(m.ClosedLeads)))
	}
	return m
}

func exactDays(from, to time.Time) float64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// FindStalledLeads returns open leads whose updatedAt is older than 30 days,
// most stale first.
func FindStalledLeads(leads []domain.Lead, now time.Time) []StalledLead {
	cutoff := now.Add(-stalledAfter)
	stalled := make([]StalledLead, 0)
	for _, l := range leads {
		if domain.IsClosedStage(l.Stage) || !l.UpdatedAt.Before(cutoff) {
			continue
		}
		stalled = append(stalled, StalledLead{
			LeadID:      l.ID,
			Title:       l.Title,
			Stage:       l.Stage,
			OwnerID:     l.OwnerID,
			Value:       l.Value,
			DaysStalled: metrics.DaysBetween(l.UpdatedAt, now),
			UpdatedAt:   l.UpdatedAt,
		})
	}

	sort.SliceStable(stalled, func(i, j int) bool {
		a, b := stalled[i], stalled[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.LeadID.String() < b.LeadID.String()
	})
	return stalled
}

// SummarizePipeline counts open, won and lost leads. WinRate is won over
// closed leads, rounded.
func SummarizePipeline(leads []domain.Lead) PipelineSummary {
	s := PipelineSummary{TotalLeads: len(leads)}
	for _, l := range leads {
		switch l.Stage {
		case domain.StageWon:
			s.WonLeads++
			s.WonValue += l.Value
		case domain.StageLost:
			s.LostLeads++
		default:
			s.OpenLeads++
			s.PipelineValue += l.Value
		}
	}
	if closed := s.WonLeads + s.LostLeads; closed > 0 {
		s.WinRate = int(math.Round(float64(s.WonLeads) / float64(closed) * 100))
	}
	return s
}
