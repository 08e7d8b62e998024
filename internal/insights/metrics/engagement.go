package metrics

const maxEngagementScore = 100

// EngagementInputs are the five figures the engagement score is built from.
type EngagementInputs struct {
	DaysSinceLastContact  int
	RecentActivityCount   int
	ActiveProjectCount    int
	CompletedProjectCount int
	TotalProjectCount     int
}

// EngagementScore sums five independently capped factors and clamps the
// total to [0, 100].
func EngagementScore(in EngagementInputs) int {
	score := recencyPoints(in.DaysSinceLastContact) +
		activityPoints(in.RecentActivityCount) +
		activeProjectPoints(in.ActiveProjectCount) +
		repeatBusinessPoints(in.CompletedProjectCount) +
		longevityPoints(in.TotalProjectCount)
	return clampScore(score)
}

// recencyPoints: max 25.
func recencyPoints(days int) int {
	switch {
	case days <= 7:
		return 25
	case days <= 14:
		return 20
	case days <= 30:
		return 15
	case days <= 60:
		return 10
	case days <= 90:
		return 5
	default:
		return 0
	}
}

// activityPoints scores the last-30-days activity count: max 25.
func activityPoints(recent int) int {
	switch {
	case recent >= 10:
		return 25
	case recent >= 7:
		return 20
	case recent >= 5:
		return 15
	case recent >= 3:
		return 10
	case recent >= 1:
		return 5
	default:
		return 0
	}
}

// activeProjectPoints: max 20.
func activeProjectPoints(active int) int {
	switch {
	case active >= 3:
		return 20
	case active == 2:
		return 15
	case active == 1:
		return 10
	default:
		return 0
	}
}

// repeatBusinessPoints scores completed projects: max 10.
func repeatBusinessPoints(completed int) int {
	switch {
	case completed >= 5:
		return 10
	case completed >= 3:
		return 8
	case completed >= 2:
		return 5
	case completed >= 1:
		return 3
	default:
		return 0
	}
}

// longevityPoints scores the total project count: max 20.
func longevityPoints(total int) int {
	switch {
	case total >= 10:
		return 20
	case total >= 7:
		return 15
	case total >= 5:
		return 10
	case total >= 3:
		return 5
	default:
		return 0
	}
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > maxEngagementScore {
		return maxEngagementScore
	}
	return value
}
