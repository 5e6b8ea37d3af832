package progress

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.March, 18, 15, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func badgeIDs(badges []Badge) []string {
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestCurrentStreak_OnlyRecentActiveChallenges(t *testing.T) {
	records := []ChallengeRecord{
		{ID: "today", StreakCount: 4, DaysCompleted: 10, LastCheckInDate: daysAgo(0)},
		{ID: "yesterday", StreakCount: 6, DaysCompleted: 20, LastCheckInDate: daysAgo(1)},
		{ID: "lapsed", StreakCount: 40, DaysCompleted: 40, LastCheckInDate: daysAgo(2)},
		{ID: "archived", StreakCount: 50, DaysCompleted: 50, LastCheckInDate: daysAgo(0), IsArchived: true},
		{ID: "completed", StreakCount: 100, DaysCompleted: 100, LastCheckInDate: daysAgo(0)},
		{ID: "never", StreakCount: 9, DaysCompleted: 0},
	}

	if got := CurrentStreak(records, testNow); got != 6 {
		t.Fatalf("expected current streak 6, got %d", got)
	}
	if got := LongestStreak(records); got != 100 {
		t.Fatalf("expected longest streak to include archived and completed records, got %d", got)
	}
}

func TestCurrentStreak_CalendarDayBoundary(t *testing.T) {
	// 23:59 two days back is still two calendar days ago even though < 48h have passed.
	lateNight := time.Date(2026, time.March, 16, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, time.March, 18, 0, 30, 0, 0, time.UTC)
	records := []ChallengeRecord{{ID: "a", StreakCount: 3, DaysCompleted: 3, LastCheckInDate: &lateNight}}

	if got := CurrentStreak(records, earlyMorning); got != 0 {
		t.Fatalf("expected streak to have lapsed, got %d", got)
	}
	if !records[0].HasStreakExpired(earlyMorning) {
		t.Fatalf("expected HasStreakExpired to agree with CurrentStreak")
	}
}

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		name    string
		records []ChallengeRecord
		want    float64
	}{
		{name: "empty", records: nil, want: 0},
		{name: "half", records: []ChallengeRecord{{DaysCompleted: 50}}, want: 0.5},
		{name: "mixed", records: []ChallengeRecord{{DaysCompleted: 100}, {DaysCompleted: 0}, {DaysCompleted: 50}, {DaysCompleted: 50}}, want: 0.5},
		{name: "clamped", records: []ChallengeRecord{{DaysCompleted: 140}}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompletionRate(tc.records); got != tc.want {
				t.Fatalf("CompletionRate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChallengeRecord_Derived(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := ChallengeRecord{StartDate: start, DaysCompleted: 100}

	if want := time.Date(2026, time.April, 11, 0, 0, 0, 0, time.UTC); !c.EndDate().Equal(want) {
		t.Fatalf("EndDate = %v, want %v", c.EndDate(), want)
	}
	if !c.IsCompleted() {
		t.Fatalf("expected 100 days to be completed")
	}
	if !(ChallengeRecord{}).HasStreakExpired(testNow) {
		t.Fatalf("a challenge without check-ins is expired")
	}
	if (ChallengeRecord{LastCheckInDate: daysAgo(1)}).HasStreakExpired(testNow) {
		t.Fatalf("a check-in yesterday keeps the streak alive")
	}
}

func TestEarnedBadges_RegistryOrder(t *testing.T) {
	records := []ChallengeRecord{
		{ID: "a", StreakCount: 35, DaysCompleted: 100, LastCheckInDate: daysAgo(0)},
		{ID: "b", StreakCount: 12, DaysCompleted: 100, LastCheckInDate: daysAgo(1)},
		{ID: "c", StreakCount: 8, DaysCompleted: 100, LastCheckInDate: daysAgo(0)},
		{ID: "d", StreakCount: 8, DaysCompleted: 60, LastCheckInDate: daysAgo(0)},
	}
	got := badgeIDs(EarnedBadges(BadgeInput{
		Records:        records,
		LongestStreak:  LongestStreak(records),
		CompletionRate: CompletionRate(records),
		Now:            testNow,
	}))
	want := []string{
		"streak_7", "streak_30", "first_completion", "triple_completion",
		"completion_25", "completion_50", "completion_75", "perfect_consistency",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("badges = %v, want %v", got, want)
	}
}

func TestEarnedBadges_EmptyInput(t *testing.T) {
	got := EarnedBadges(BadgeInput{Now: testNow})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil badge list, got %#v", got)
	}
}

func TestEarnedBadges_PerfectConsistencyRequiresEveryRecord(t *testing.T) {
	records := []ChallengeRecord{
		{ID: "a", StreakCount: 10, DaysCompleted: 10, LastCheckInDate: daysAgo(0)},
		{ID: "b", StreakCount: 1, DaysCompleted: 1, LastCheckInDate: daysAgo(3)},
	}
	got := badgeIDs(EarnedBadges(BadgeInput{Records: records, LongestStreak: 10, Now: testNow}))
	if !reflect.DeepEqual(got, []string{"streak_7"}) {
		t.Fatalf("badges = %v", got)
	}
}

func TestBadgeCatalog_StableIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range BadgeCatalog() {
		if b.ID == "" || b.Title == "" || b.Icon == "" {
			t.Fatalf("badge missing fields: %+v", b)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 badges, got %d", len(seen))
	}
}

func TestAggregate_SingleChallengeScenario(t *testing.T) {
	records := []ChallengeRecord{{
		ID:              "c1",
		DaysCompleted:   25,
		StreakCount:     5,
		LastCheckInDate: daysAgo(1),
	}}

	m := Aggregate(records, nil, testNow)
	if m.CurrentStreak != 5 {
		t.Fatalf("expected current streak 5, got %d", m.CurrentStreak)
	}
	if got := badgeIDs(m.EarnedBadges); !reflect.DeepEqual(got, []string{"completion_25"}) {
		t.Fatalf("expected only the 25%% badge, got %v", got)
	}
	if m.EarnedBadges[0].Title != "25% Complete" {
		t.Fatalf("unexpected badge title %q", m.EarnedBadges[0].Title)
	}
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, nil, testNow)
	if m.TotalChallenges != 0 || m.CompletionPercentage != 0 || len(m.EarnedBadges) != 0 {
		t.Fatalf("unexpected metrics for empty input: %+v", m)
	}
	if m.CurrentPace != PaceAllCompleted || m.ProjectedCompletionDate != nil {
		t.Fatalf("unexpected pace for empty input: %q %v", m.CurrentPace, m.ProjectedCompletionDate)
	}
}

func randomRecords(r *rand.Rand) []ChallengeRecord {
	n := r.Intn(8)
	records := make([]ChallengeRecord, n)
	for i := range records {
		records[i] = ChallengeRecord{
			ID:            string(rune('a' + i)),
			StreakCount:   r.Intn(60),
			DaysCompleted: r.Intn(121),
			IsArchived:    r.Intn(4) == 0,
		}
		if r.Intn(3) > 0 {
			records[i].LastCheckInDate = daysAgo(r.Intn(5))
		}
	}
	return records
}

func TestAggregate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		records := randomRecords(r)

		rate := CompletionRate(records)
		if rate < 0 || rate > 1 {
			t.Fatalf("completion rate %v out of range for %+v", rate, records)
		}
		if cur, longest := CurrentStreak(records, testNow), LongestStreak(records); cur > longest {
			t.Fatalf("current streak %d exceeds longest %d", cur, longest)
		}

		first := Aggregate(records, nil, testNow)
		second := Aggregate(records, nil, testNow)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("aggregate is not deterministic:\n%+v\n%+v", first, second)
		}
	}
}

func TestEarnedBadges_MonotoneInCompletionRate(t *testing.T) {
	records := []ChallengeRecord{{ID: "a", StreakCount: 3, LastCheckInDate: daysAgo(0)}}
	var previous map[string]bool
	for days := 0; days <= 100; days += 5 {
		records[0].DaysCompleted = days
		current := map[string]bool{}
		for _, b := range EarnedBadges(BadgeInput{
			Records:        records,
			LongestStreak:  LongestStreak(records),
			CompletionRate: CompletionRate(records),
			Now:            testNow,
		}) {
			current[b.ID] = true
		}
		for id := range previous {
			if !current[id] {
				t.Fatalf("badge %q revoked at %d days", id, days)
			}
		}
		previous = current
	}
}
