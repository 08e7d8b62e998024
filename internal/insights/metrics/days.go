// Package metrics derives per-record figures (elapsed days, counts, the
// client engagement score) from a lead or client snapshot. Every function is
// pure: the same snapshot and the same now give the same result.
package metrics

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// DaysBetween returns the whole days elapsed from from to to, floored and
// never negative.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(float64(d) / float64(day)))
}
