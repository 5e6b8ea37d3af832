package progress

import (
	"context"
	"maps"
	"slices"
	"time"
)

// ChallengeLength is the number of days a challenge runs for.
const ChallengeLength = 100

// ChallengeRecord represents a single 100-day challenge owned by a user.
type ChallengeRecord struct {
	ID              string     `json:"id" firestore:"id"`
	Title           string     `json:"title" firestore:"title"`
	StartDate       time.Time  `json:"start_date" firestore:"start_date"`
	LastCheckInDate *time.Time `json:"last_check_in_date,omitempty" firestore:"last_check_in_date"`
	StreakCount     int        `json:"streak_count" firestore:"streak_count"`
	DaysCompleted   int        `json:"days_completed" firestore:"days_completed"`
	IsArchived      bool       `json:"is_archived" firestore:"is_archived"`
	OwnerID         string     `json:"owner_id" firestore:"owner_id"`
	LastModified    time.Time  `json:"last_modified" firestore:"last_modified"`
}

// EndDate is the day the challenge is scheduled to finish.
func (c ChallengeRecord) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, ChallengeLength)
}

// IsCompleted reports whether all days of the challenge have been checked in.
func (c ChallengeRecord) IsCompleted() bool {
	return c.DaysCompleted >= ChallengeLength
}

// HasStreakExpired reports whether more than one calendar day has passed since
// the last check-in. A challenge without any check-in is always expired.
func (c ChallengeRecord) HasStreakExpired(now time.Time) bool {
	if c.LastCheckInDate == nil {
		return true
	}
	return daysBetween(*c.LastCheckInDate, now) > 1
}

// CheckInRecord is the number of check-ins recorded for a challenge on a day.
type CheckInRecord struct {
	ChallengeID string    `json:"challenge_id" firestore:"challenge_id"`
	Date        time.Time `json:"date" firestore:"date"`
	Count       int       `json:"count" firestore:"count"`
}

// Badge is an achievement unlocked by the aggregated metrics.
type Badge struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// DerivedMetrics is the snapshot published by a successful load.
// Values are never mutated after publication; callers receive copies.
type DerivedMetrics struct {
	TotalChallenges         int            `json:"total_challenges"`
	CurrentStreak           int            `json:"current_streak"`
	LongestStreak           int            `json:"longest_streak"`
	CompletionPercentage    float64        `json:"completion_percentage"`
	DateIntensityMap        map[string]int `json:"date_intensity_map"`
	ProjectedCompletionDate *time.Time     `json:"projected_completion_date,omitempty"`
	CurrentPace             string         `json:"current_pace"`
	EarnedBadges            []Badge        `json:"earned_badges"`
}

// Clone returns a deep copy of the metrics.
func (m DerivedMetrics) Clone() DerivedMetrics {
	out := m
	out.DateIntensityMap = maps.Clone(m.DateIntensityMap)
	if m.ProjectedCompletionDate != nil {
		d := *m.ProjectedCompletionDate
		out.ProjectedCompletionDate = &d
	}
	out.EarnedBadges = slices.Clone(m.EarnedBadges)
	return out
}

// emptyMetrics is what consumers see before any data was published.
func emptyMetrics() DerivedMetrics {
	return DerivedMetrics{
		DateIntensityMap: map[string]int{},
		CurrentPace:      PaceAllCompleted,
		EarnedBadges:     []Badge{},
	}
}

// Status is the lifecycle state of the load coordinator.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// State is everything the presentation layer may observe about an engine.
type State struct {
	Status       Status         `json:"status"`
	Metrics      DerivedMetrics `json:"metrics"`
	HasData      bool           `json:"has_data"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// IsLoading reports whether an attempt is in flight.
func (s State) IsLoading() bool {
	return s.Status == StatusLoading
}

func (s State) clone() State {
	out := s
	out.Metrics = s.Metrics.Clone()
	if s.ErrorMessage != nil {
		msg := *s.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

// AuthProvider resolves the signed-in user for a load attempt.
type AuthProvider interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// AuthProviderFunc adapts a function to AuthProvider.
type AuthProviderFunc func(ctx context.Context) (string, bool)

// CurrentUserID implements AuthProvider.
func (f AuthProviderFunc) CurrentUserID(ctx context.Context) (string, bool) {
	return f(ctx)
}

// DocumentStore is the remote store holding challenges and check-ins.
type DocumentStore interface {
	ListChallenges(ctx context.Context, userID string) ([]ChallengeRecord, error)
	ListCheckIns(ctx context.Context, userID, challengeID string, since time.Time) ([]CheckInRecord, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}
