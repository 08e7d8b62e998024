// Package analytics builds the organization-wide dashboard from a snapshot of
// leads, clients and projects. The builder is pure; visibility filtering and
// reading the snapshot happen before it is called.
package analytics

import (
	"fmt"
	"time"
)

// Period selects the look-back window for period revenue.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// DefaultPeriod applies when the caller names none.
const DefaultPeriod = PeriodMonth

// ParsePeriod accepts exactly week, month or quarter, matching the
// dashboard query validation. An empty string yields DefaultPeriod.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return DefaultPeriod, nil
	case PeriodWeek, PeriodMonth, PeriodQuarter:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", raw)
	}
}

// Since returns the start of the window ending at now. Month and quarter are
// calendar months, not fixed day counts.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodQuarter:
		return now.AddDate(0, -3, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}
