package progress

import (
	"math"
	"time"
)

// CurrentStreak returns the best streak among active challenges whose last
// check-in was today or yesterday. Archived and completed challenges never
// contribute.
func CurrentStreak(records []ChallengeRecord, now time.Time) int {
	best := 0
	for _, r := range records {
		if r.IsArchived || r.IsCompleted() {
			continue
		}
		if r.LastCheckInDate == nil {
			continue
		}
		if daysBetween(*r.LastCheckInDate, now) > 1 {
			continue
		}
		if r.StreakCount > best {
			best = r.StreakCount
		}
	}
	return best
}

// LongestStreak returns the maximum streak over every record, including
// archived and completed ones.
func LongestStreak(records []ChallengeRecord) int {
	best := 0
	for _, r := range records {
		if r.StreakCount > best {
			best = r.StreakCount
		}
	}
	return best
}

// CompletionRate is the fraction of the theoretical 100-day total completed
// across all records, clamped to [0, 1].
func CompletionRate(records []ChallengeRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		if r.DaysCompleted > 0 {
			total += r.DaysCompleted
		}
	}
	rate := float64(total) / float64(len(records)*ChallengeLength)
	return math.Min(1, rate)
}

// CompletedCount counts records with every day checked in.
func CompletedCount(records []ChallengeRecord) int {
	n := 0
	for _, r := range records {
		if r.IsCompleted() {
			n++
		}
	}
	return n
}

// Aggregate derives the full metrics snapshot from one user's records.
// It is pure: identical inputs and now yield identical output.
func Aggregate(records []ChallengeRecord, checkIns []CheckInRecord, now time.Time) DerivedMetrics {
	longest := LongestStreak(records)
	rate := CompletionRate(records)
	pace := ProjectPace(records, checkIns, now)

	return DerivedMetrics{
		TotalChallenges:         len(records),
		CurrentStreak:           CurrentStreak(records, now),
		LongestStreak:           longest,
		CompletionPercentage:    rate,
		DateIntensityMap:        BuildIntensityMap(checkIns, now),
		ProjectedCompletionDate: pace.ProjectedCompletionDate,
		CurrentPace:             pace.Label,
		EarnedBadges: EarnedBadges(BadgeInput{
			Records:        records,
			LongestStreak:  longest,
			CompletionRate: rate,
			Now:            now,
		}),
	}
}
