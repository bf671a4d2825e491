package analytics

// Iteration cadence. The 14-day length is a fixed constant of the analysis,
// not read from the sprint's actual dates.
const (
	sprintDays     = 14
	weeksPerSprint = 2
)

const secondsPerHour = 3600

// Hours converts logged seconds to hours.
func Hours(seconds int) float64 { return float64(seconds) / secondsPerHour }

// Display tiers for one person's logged total within one sprint.
const (
	TimeLow    = "low"
	TimeNormal = "normal"
	TimeHigh   = "high"
)

// HoursTier buckets a per-sprint logged total: under 40h low, up to 80h
// normal, beyond that high.
func HoursTier(h float64) string {
	switch {
	case h < 40:
		return TimeLow
	case h <= 80:
		return TimeNormal
	default:
		return TimeHigh
	}
}

// Percent returns part of total as a percentage, 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
