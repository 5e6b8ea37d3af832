package progress

import "time"

// BadgeInput carries the aggregates badge rules are evaluated against.
type BadgeInput struct {
	Records        []ChallengeRecord
	LongestStreak  int
	CompletionRate float64
	Now            time.Time
}

type badgeRule struct {
	Badge
	earned func(BadgeInput) bool
}

// badgeRegistry is the canonical id -> rule table, evaluated in this order.
// IDs are persisted by clients; never reuse or renumber one.
var badgeRegistry = []badgeRule{
	{
		Badge:  Badge{ID: "streak_7", Title: "7-Day Streak", Icon: "flame.fill"},
		earned: func(in BadgeInput) bool { return in.LongestStreak >= 7 },
	},
	{
		Badge:  Badge{ID: "streak_30", Title: "30-Day Streak", Icon: "flame.circle.fill"},
		earned: func(in BadgeInput) bool { return in.LongestStreak >= 30 },
	},
	{
		Badge:  Badge{ID: "first_completion", Title: "First Completion", Icon: "checkmark.seal.fill"},
		earned: func(in BadgeInput) bool { return CompletedCount(in.Records) >= 1 },
	},
	{
		Badge:  Badge{ID: "triple_completion", Title: "Triple Completion", Icon: "star.circle.fill"},
		earned: func(in BadgeInput) bool { return CompletedCount(in.Records) >= 3 },
	},
	{
		Badge:  Badge{ID: "completion_25", Title: "25% Complete", Icon: "chart.pie"},
		earned: func(in BadgeInput) bool { return in.CompletionRate >= 0.25 },
	},
	{
		Badge:  Badge{ID: "completion_50", Title: "50% Complete", Icon: "chart.pie.fill"},
		earned: func(in BadgeInput) bool { return in.CompletionRate >= 0.50 },
	},
	{
		Badge:  Badge{ID: "completion_75", Title: "75% Complete", Icon: "chart.bar.fill"},
		earned: func(in BadgeInput) bool { return in.CompletionRate >= 0.75 },
	},
	{
		Badge:  Badge{ID: "perfect_consistency", Title: "Perfect Consistency", Icon: "calendar.badge.checkmark"},
		earned: perfectConsistency,
	},
}

// perfectConsistency requires a non-empty set where no challenge has lapsed,
// backed by at least a week-long streak. The streak floor keeps a single fresh
// challenge from earning it on day one; it still needs product sign-off.
func perfectConsistency(in BadgeInput) bool {
	if len(in.Records) == 0 || in.LongestStreak < 7 {
		return false
	}
	for _, r := range in.Records {
		if r.HasStreakExpired(in.Now) {
			return false
		}
	}
	return true
}

// EarnedBadges returns every badge unlocked by in, in registry order.
func EarnedBadges(in BadgeInput) []Badge {
	unlocked := []Badge{}
	for _, rule := range badgeRegistry {
		if rule.earned(in) {
			unlocked = append(unlocked, rule.Badge)
		}
	}
	return unlocked
}

// BadgeCatalog lists every badge that can be earned, in registry order.
func BadgeCatalog() []Badge {
	out := make([]Badge, len(badgeRegistry))
	for i, rule := range badgeRegistry {
		out[i] = rule.Badge
	}
	return out
}
