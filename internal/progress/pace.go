package progress

import (
	"fmt"
	"math"
	"time"
)

const (
	// PaceWindowDays is the trailing window used to measure velocity.
	PaceWindowDays = 30
	// PaceAllCompleted is reported when nothing is left to complete.
	PaceAllCompleted = "All completed"
	// PaceStalled is reported when there were no recent check-ins.
	PaceStalled = "0 days/week"
)

// Pace is the projected velocity towards finishing all active challenges.
type Pace struct {
	WeeklyRate              float64
	DaysRemaining           int
	ProjectedCompletionDate *time.Time
	Label                   string
}

// WeeklyRate is the number of check-ins over the trailing 30 days, today
// included, divided by four.
func WeeklyRate(checkIns []CheckInRecord, now time.Time) float64 {
	today := startOfDay(now)
	since := today.AddDate(0, 0, -(PaceWindowDays - 1))
	tomorrow := today.AddDate(0, 0, 1)

	total := 0
	for _, c := range checkIns {
		if c.Count <= 0 {
			continue
		}
		day := startOfDay(c.Date.In(now.Location()))
		if day.Before(since) || !day.Before(tomorrow) {
			continue
		}
		total += c.Count
	}
	return float64(total) / 4.0
}

// DaysRemaining sums the days left on incomplete, non-archived challenges.
func DaysRemaining(records []ChallengeRecord) int {
	remaining := 0
	for _, r := range records {
		if r.IsArchived || r.IsCompleted() {
			continue
		}
		left := ChallengeLength - r.DaysCompleted
		if left > ChallengeLength {
			left = ChallengeLength
		}
		remaining += left
	}
	return remaining
}

// ProjectPace computes the current pace label and projected completion date.
func ProjectPace(records []ChallengeRecord, checkIns []CheckInRecord, now time.Time) Pace {
	remaining := DaysRemaining(records)
	rate := WeeklyRate(checkIns, now)
	pace := Pace{WeeklyRate: rate, DaysRemaining: remaining}

	hasIncomplete := false
	for _, r := range records {
		if !r.IsArchived && !r.IsCompleted() {
			hasIncomplete = true
			break
		}
	}

	switch {
	case !hasIncomplete:
		pace.Label = PaceAllCompleted
	case rate <= 0:
		pace.Label = PaceStalled
	default:
		days := int(math.Ceil(float64(remaining) / rate * 7))
		projected := startOfDay(now).AddDate(0, 0, days)
		pace.ProjectedCompletionDate = &projected
		pace.Label = fmt.Sprintf("%.1f days/week", rate)
	}
	return pace
}
