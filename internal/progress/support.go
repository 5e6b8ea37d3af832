package progress

import (
	"time"

	"github.com/google/uuid"
)

const dateKeyLayout = "2006-01-02"

// ===== Clock =====

type systemClock struct{}

// NewSystemClock returns a Clock implementation backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// ===== Attempt IDs =====

// newAttemptID produces v7 UUIDs where available, falling back to v4.
func newAttemptID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ===== Calendar helpers =====

// startOfDay truncates t to midnight in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b in b's location.
// It is negative when a falls on a later day than b.
func daysBetween(a, b time.Time) int {
	from := startOfDay(a.In(b.Location()))
	to := startOfDay(b)
	// Calendar arithmetic on UTC dates sidesteps DST-length days.
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	fu := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	tu := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(tu.Sub(fu).Hours() / 24)
}

// DateKey formats t as the intensity map key for its local calendar day.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}
