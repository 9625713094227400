package gamification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/store"
)

// mockRepo implements store.LedgerRepo and store.BadgeRepo in memory.
type mockRepo struct {
	mu      sync.Mutex
	entries []store.LedgerEntryData
	keys    map[string]bool
	awards  []store.BadgeAwardData
}

func newMockRepo() *mockRepo {
	return &mockRepo{keys: map[string]bool{}}
}

func (m *mockRepo) AppendLedgerEntry(_ context.Context, d store.LedgerEntryData) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[d.IdempotencyKey] {
		return false, nil
	}
	m.keys[d.IdempotencyKey] = true
	m.entries = append(m.entries, d)
	return true, nil
}

func (m *mockRepo) HasLedgerEntry(_ context.Context, userID, ruleID, sourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID && e.RuleID == ruleID && e.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) DailyPoints(_ context.Context, userID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.entries {
		if e.UserID == userID && e.Day == day {
			total += e.Points
		}
	}
	return total, nil
}

func (m *mockRepo) TotalPoints(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.entries {
		if e.UserID == userID {
			total += e.Points
		}
	}
	return total, nil
}

func (m *mockRepo) ActivityDays(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var days []string
	for _, e := range m.entries {
		if e.UserID == userID && !seen[e.Day] {
			seen[e.Day] = true
			days = append(days, e.Day)
		}
	}
	sort.Strings(days)
	return days, nil
}

func (m *mockRepo) QueryLedger(_ context.Context, userID string, _ store.QueryOpts) ([]store.LedgerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.LedgerRecord
	for i, e := range m.entries {
		if e.UserID == userID {
			out = append(out, store.LedgerRecord{LedgerEntryData: e, Sequence: int64(i + 1)})
		}
	}
	return out, nil
}

func (m *mockRepo) AwardBadge(_ context.Context, d store.BadgeAwardData) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.awards {
		if a.UserID == d.UserID && a.BadgeID == d.BadgeID {
			return false, nil
		}
	}
	m.awards = append(m.awards, d)
	return true, nil
}

func (m *mockRepo) QueryBadgeAwards(_ context.Context, userID string) ([]store.BadgeAwardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.BadgeAwardRecord
	for i, a := range m.awards {
		if a.UserID == userID {
			out = append(out, store.BadgeAwardRecord{BadgeAwardData: a, Sequence: int64(i + 1)})
		}
	}
	return out, nil
}

func defaultRules() []PointsRule {
	return []PointsRule{
		{ID: "pr-lesson", Trigger: TriggerLessonComplete, Points: 5, Enabled: true},
		{ID: "pr-course", Trigger: TriggerCourseComplete, Points: 25, Enabled: true},
		{ID: "pr-quiz", Trigger: TriggerQuizPass, Points: 15, Enabled: true},
		{ID: "pr-ontime", Trigger: TriggerOnTimeBonus, Points: 10, Enabled: false},
	}
}

func newTestAwarder(policy Policy, badges ...Badge) (*Awarder, *mockRepo) {
	repo := newMockRepo()
	a := NewAwarder(Config{Rules: defaultRules(), Badges: badges, Policy: policy}, repo, repo, nil)
	return a, repo
}

var day1 = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

func TestDuplicateCompletionEarnsOnce(t *testing.T) {
	a, repo := newTestAwarder(Policy{DailyCap: 100, NoDuplicateRewatch: true})
	ctx := context.Background()
	ev := CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "C1", At: day1}

	out, err := a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, 25, out.Entry.Points)

	ev.At = day1.Add(time.Hour)
	out, err = a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	assert.Nil(t, out.Entry)
	assert.Equal(t, apperr.SkipDuplicateRewatch, out.Skip)
	assert.Len(t, repo.entries, 1)
}

func TestRepeatAllowedWithoutRewatchPolicy(t *testing.T) {
	a, repo := newTestAwarder(Policy{})
	ctx := context.Background()
	ev := CompletionEvent{UserID: "u1", Trigger: TriggerLessonComplete, SourceID: "L1", At: day1}

	_, err := a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	ev.At = day1.Add(time.Minute)
	out, err := a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Len(t, repo.entries, 2)
}

func TestDailyCapClampsToHeadroom(t *testing.T) {
	a, repo := newTestAwarder(Policy{DailyCap: 100, NoDuplicateRewatch: true})
	ctx := context.Background()

	// 90 points already logged today.
	_, err := repo.AppendLedgerEntry(ctx, store.LedgerEntryData{
		UserID: "u1", RuleID: "seed", SourceID: "x", Points: 90, IdempotencyKey: "seed", Day: "2025-02-03",
	})
	require.NoError(t, err)

	out, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "C1", At: day1})
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, 10, out.Entry.Points)
	assert.True(t, out.Clamped)

	total, _ := repo.DailyPoints(ctx, "u1", "2025-02-03")
	assert.Equal(t, 100, total)

	out, err = a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerQuizPass, SourceID: "Q1", At: day1})
	require.NoError(t, err)
	assert.Nil(t, out.Entry)
	assert.Equal(t, apperr.SkipCapExhausted, out.Skip)

	// A new day has fresh headroom.
	out, err = a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerQuizPass, SourceID: "Q1", At: day1.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, 15, out.Entry.Points)
}

func TestDailyCapUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	repo := newMockRepo()
	a := NewAwarder(Config{Rules: defaultRules(), Policy: Policy{DailyCap: 30}, Location: loc}, repo, repo, nil)
	ctx := context.Background()

	// 20:00 UTC on Feb 3 is already Feb 4 in UTC+5.
	_, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "C1", At: time.Date(2025, 2, 3, 20, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "2025-02-04", repo.entries[0].Day)
}

func TestRuleSkips(t *testing.T) {
	a, repo := newTestAwarder(DefaultPolicy())
	ctx := context.Background()

	tests := []struct {
		trigger Trigger
		want    apperr.SkipReason
	}{
		{TriggerOnTimeBonus, apperr.SkipRuleDisabled},
		{TriggerAttendanceBonus, apperr.SkipNoRule},
	}
	for _, tt := range tests {
		out, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: tt.trigger, SourceID: "s", At: day1})
		if err != nil {
			t.Fatalf("%s: %v", tt.trigger, err)
		}
		if out.Skip != tt.want {
			t.Errorf("%s: skip = %q, want %q", tt.trigger, out.Skip, tt.want)
		}
	}
	assert.Empty(t, repo.entries)
}

func TestEnabledRuleWinsOverDisabledDuplicate(t *testing.T) {
	repo := newMockRepo()
	a := NewAwarder(Config{Rules: []PointsRule{
		{ID: "on", Trigger: TriggerQuizPass, Points: 15, Enabled: true},
		{ID: "off", Trigger: TriggerQuizPass, Points: 50, Enabled: false},
	}}, repo, repo, nil)

	out, err := a.OnCompletionEvent(context.Background(), CompletionEvent{UserID: "u1", Trigger: TriggerQuizPass, SourceID: "Q", At: day1})
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "on", out.Entry.RuleID)
}

func TestCourseBadgeAwardedOnce(t *testing.T) {
	badge := Badge{ID: "safety-ready", Name: "Safety Ready", TriggerType: BadgeCourseCompletion,
		Config: BadgeConfig{CourseID: "Intro"}, Visibility: VisibilityPublic, Enabled: true}
	a, repo := newTestAwarder(DefaultPolicy(), badge)
	ctx := context.Background()
	ev := CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "Intro", At: day1}

	out, err := a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	require.Len(t, out.Badges, 1)
	assert.Equal(t, "safety-ready", out.Badges[0].BadgeID)

	// Resync of the same completion awards nothing new.
	out, err = a.OnCompletionEvent(ctx, ev)
	require.NoError(t, err)
	assert.Empty(t, out.Badges)
	assert.Len(t, repo.awards, 1)

	// A different course does not match.
	out, err = a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u2", Trigger: TriggerCourseComplete, SourceID: "Other", At: day1})
	require.NoError(t, err)
	assert.Empty(t, out.Badges)
}

func TestBadgeEvaluatedWhenPointsSkipped(t *testing.T) {
	badge := Badge{ID: "any-course", TriggerType: BadgeCourseCompletion, Enabled: true}
	a, _ := newTestAwarder(Policy{DailyCap: 100, NoDuplicateRewatch: true}, badge)
	ctx := context.Background()

	a.rules[TriggerCourseComplete] = PointsRule{ID: "pr-course", Trigger: TriggerCourseComplete, Points: 25, Enabled: false}
	out, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "C1", At: day1})
	require.NoError(t, err)
	assert.Equal(t, apperr.SkipRuleDisabled, out.Skip)
	assert.Len(t, out.Badges, 1)
}

func TestStreakAndPointsBadges(t *testing.T) {
	streak := Badge{ID: "three-day", TriggerType: BadgeStreak, Config: BadgeConfig{Days: 3}, Enabled: true}
	points := Badge{ID: "fifty", TriggerType: BadgePointsTotal, Config: BadgeConfig{Points: 50}, Enabled: true}
	disabled := Badge{ID: "never", TriggerType: BadgePointsTotal, Config: BadgeConfig{Points: 1}}
	a, _ := newTestAwarder(DefaultPolicy(), streak, points, disabled)
	ctx := context.Background()

	var earned []string
	for i := 0; i < 3; i++ {
		out, err := a.OnCompletionEvent(ctx, CompletionEvent{
			UserID: "u1", Trigger: TriggerCourseComplete, SourceID: fmt.Sprintf("C%d", i), At: day1.AddDate(0, 0, i),
		})
		require.NoError(t, err)
		for _, b := range out.Badges {
			earned = append(earned, fmt.Sprintf("%d:%s", i, b.BadgeID))
		}
	}
	// 25 + 25 reaches 50 on day two; the streak reaches 3 on day three.
	assert.Equal(t, []string{"1:fifty", "2:three-day"}, earned)
}

func TestOnTimeAndPathBadges(t *testing.T) {
	onTime := Badge{ID: "punctual", TriggerType: BadgeOnTimeCompletion, Enabled: true}
	path := Badge{ID: "p1-done", TriggerType: BadgePathCompletion, Config: BadgeConfig{PathID: "P1"}, Enabled: true}
	a, _ := newTestAwarder(DefaultPolicy(), onTime, path)
	ctx := context.Background()

	out, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerPathComplete, SourceID: "P2", At: day1, OnTime: false})
	require.NoError(t, err)
	assert.Empty(t, out.Badges)

	out, err = a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerPathComplete, SourceID: "P1", At: day1, OnTime: true})
	require.NoError(t, err)
	var ids []string
	for _, b := range out.Badges {
		ids = append(ids, b.BadgeID)
	}
	assert.ElementsMatch(t, []string{"punctual", "p1-done"}, ids)
}

func TestConcurrentEventsRespectCap(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, repo := newTestAwarder(Policy{DailyCap: 100, NoDuplicateRewatch: true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the events repeat a source.
			src := fmt.Sprintf("C%d", i%10)
			if _, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: src, At: day1}); err != nil {
				t.Errorf("event %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total, _ := repo.DailyPoints(ctx, "u1", "2025-02-03")
	assert.Equal(t, 100, total)
	seen := map[string]bool{}
	for _, e := range repo.entries {
		assert.False(t, seen[e.SourceID], "duplicate entry for %s", e.SourceID)
		seen[e.SourceID] = true
	}
	assert.Equal(t, 0, a.locks.Len())
}

func TestBalanceEntriesAwards(t *testing.T) {
	badge := Badge{ID: "b", TriggerType: BadgeCourseCompletion, Enabled: true}
	a, _ := newTestAwarder(DefaultPolicy(), badge)
	ctx := context.Background()

	_, err := a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerCourseComplete, SourceID: "C1", At: day1})
	require.NoError(t, err)
	_, err = a.OnCompletionEvent(ctx, CompletionEvent{UserID: "u1", Trigger: TriggerLessonComplete, SourceID: "L1", At: day1})
	require.NoError(t, err)

	bal, err := a.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, bal)

	entries, err := a.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pr-course", entries[0].RuleID)

	awards, err := a.Awards(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, "b", awards[0].BadgeID)
}
