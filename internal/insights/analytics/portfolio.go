package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/metrics"

	"github.com/google/uuid"
)

const (
	longRunningMonths    = 6
	topClientsCount      = 5
	concentrationRiskPct = 50
)

// ProjectAtRisk names a project and every reason it was flagged.
type ProjectAtRisk struct {
	ProjectID uuid.UUID `json:"projectId"`
	ClientID  uuid.UUID `json:"clientId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Value     float64   `json:"value"`
	Reason    string    `json:"reason"`
}

// ClientRevenue is one entry of the top-clients list.
type ClientRevenue struct {
	ClientID   uuid.UUID `json:"clientId"`
	Name       string    `json:"name"`
	Revenue    float64   `json:"revenue"`
	Percentage int       `json:"percentage"`
}

// Concentration measures how much lifetime revenue the biggest clients hold.
type Concentration struct {
	TotalRevenue          float64         `json:"totalRevenue"`
	TopClientPercentage   int             `json:"topClientPercentage"`
	Top5ClientsPercentage int             `json:"top5ClientsPercentage"`
	IsHighRisk            bool            `json:"isHighRisk"`
	TopClients            []ClientRevenue `json:"topClients"`
}

// FindProjectsAtRisk flags projects on hold, active without a start date, or
// active for more than six 30-day months. Output keeps input order.
func FindProjectsAtRisk(projects []domain.Project, now time.Time) []ProjectAtRisk {
	atRisk := make([]ProjectAtRisk, 0)
	for _, p := range projects {
		reasons := projectRiskReasons(p, now)
		if len(reasons) == 0 {
			continue
		}
		atRisk = append(atRisk, ProjectAtRisk{
			ProjectID: p.ID,
			ClientID:  p.ClientID,
			Name:      p.Name,
			Status:    p.Status,
			Value:     p.Value,
			Reason:    strings.Join(reasons, "; "),
		})
	}
	return atRisk
}

func projectRiskReasons(p domain.Project, now time.Time) []string {
	var reasons []string
	if p.Status == domain.ProjectOnHold {
		reasons = append(reasons, "Project is on hold")
	}
	if p.Status == domain.ProjectActive {
		if p.StartDate == nil {
			reasons = append(reasons, "Active project has no start date")
		} else if months := metrics.DaysBetween(*p.StartDate, now) / 30; months > longRunningMonths {
			reasons = append(reasons, fmt.Sprintf("Active for %d months", months))
		}
	}
	return reasons
}

// MeasureConcentration ranks clients by lifetime revenue. Negative revenue
// (credits, refunds) counts as 0. Percentages are 0 when the total is 0.
func MeasureConcentration(clients []domain.Client) Concentration {
	ranked := make([]domain.Client, len(clients))
	copy(ranked, clients)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := creditedRevenue(ranked[i]), creditedRevenue(ranked[j])
		if ri != rj {
			return ri > rj
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})

	var c Concentration
	for _, cl := range ranked {
		c.TotalRevenue += creditedRevenue(cl)
	}

	n := min(topClientsCount, len(ranked))
	c.TopClients = make([]ClientRevenue, 0, n)
	var topSum float64
	for _, cl := range ranked[:n] {
		revenue := creditedRevenue(cl)
		topSum += revenue
		c.TopClients = append(c.TopClients, ClientRevenue{
			ClientID:   cl.ID,
			Name:       cl.Name,
			Revenue:    revenue,
			Percentage: percentOf(revenue, c.TotalRevenue),
		})
	}

	if n > 0 {
		c.TopClientPercentage = percentOf(creditedRevenue(ranked[0]), c.TotalRevenue)
	}
	c.Top5ClientsPercentage = percentOf(topSum, c.TotalRevenue)
	// Compared unrounded: 50.4% is high risk even though it displays as 50.
	c.IsHighRisk = c.TotalRevenue > 0 && topSum/c.TotalRevenue*100 > concentrationRiskPct
	return c
}

func creditedRevenue(c domain.Client) float64 {
	return max(0, c.Revenue())
}

func percentOf(part, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}

// PeriodRevenue sums the value of projects completed inside the period
// ending at now.
func PeriodRevenue(projects []domain.Project, period Period, now time.Time) float64 {
	since := period.Since(now)
	var total float64
	for _, p := range projects {
		if p.CompletedDate == nil {
			continue
		}
		if p.CompletedDate.Before(since) || p.CompletedDate.After(now) {
			continue
		}
		total += p.Value
	}
	return total
}

// RevenueByStatus sums project values per status.
func RevenueByStatus(projects []domain.Project) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range projects {
		out[p.Status] += p.Value
	}
	return out
}
