package gamification

import "time"

// Trigger identifies the completion event a points rule reacts to.
type Trigger string

const (
	TriggerLessonComplete  Trigger = "lesson_complete"
	TriggerCourseComplete  Trigger = "course_complete"
	TriggerQuizPass        Trigger = "quiz_pass"
	TriggerOnTimeBonus     Trigger = "on_time_bonus"
	TriggerAttendanceBonus Trigger = "attendance_bonus"
	TriggerPathComplete    Trigger = "path_complete"
)

// AllTriggers returns every trigger in display order.
func AllTriggers() []Trigger {
	return []Trigger{
		TriggerLessonComplete, TriggerCourseComplete, TriggerQuizPass,
		TriggerOnTimeBonus, TriggerAttendanceBonus, TriggerPathComplete,
	}
}

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	for _, k := range AllTriggers() {
		if t == k {
			return true
		}
	}
	return false
}

// PointsRule grants Points whenever its Trigger fires.
type PointsRule struct {
	ID      string
	Trigger Trigger
	Points  int
	Enabled bool
}

// Policy bounds how points accrue.
type Policy struct {
	DailyCap           int  // 0 = no cap
	NoDuplicateRewatch bool // one entry per (user, rule, source)
}

// DefaultPolicy returns the policy used when the catalog sets none.
func DefaultPolicy() Policy {
	return Policy{DailyCap: 100, NoDuplicateRewatch: true}
}

// CompletionEvent is a learner achievement that may earn points.
type CompletionEvent struct {
	UserID   string
	Trigger  Trigger
	SourceID string // course, step, lesson or path id the event is about
	At       time.Time
	OnTime   bool // completed on or before the due date
}

// LedgerEntry is one immutable points award.
type LedgerEntry struct {
	ID        string
	UserID    string
	RuleID    string
	SourceID  string
	Points    int
	CreatedAt time.Time
}

// BadgeTrigger identifies what a badge checks.
type BadgeTrigger string

const (
	BadgeCourseCompletion BadgeTrigger = "course_completion"
	BadgeOnTimeCompletion BadgeTrigger = "on_time_completion"
	BadgeStreak           BadgeTrigger = "streak"
	BadgePointsTotal      BadgeTrigger = "points_total"
	BadgePathCompletion   BadgeTrigger = "path_completion"
)

// AllBadgeTriggers returns every badge trigger.
func AllBadgeTriggers() []BadgeTrigger {
	return []BadgeTrigger{
		BadgeCourseCompletion, BadgeOnTimeCompletion, BadgeStreak, BadgePointsTotal, BadgePathCompletion,
	}
}

// Valid reports whether t is a known badge trigger.
func (t BadgeTrigger) Valid() bool {
	for _, k := range AllBadgeTriggers() {
		if t == k {
			return true
		}
	}
	return false
}

// Visibility controls who can see a badge.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityTeam    Visibility = "team"
	VisibilityPrivate Visibility = "private"
)

// BadgeConfig holds the trigger parameters. Only the fields relevant to
// the badge's trigger are read.
type BadgeConfig struct {
	CourseID string // course_completion; empty matches any course
	PathID   string // path_completion; empty matches any path
	Days     int    // streak
	Points   int    // points_total
}

// Badge is an achievement awarded at most once per user.
type Badge struct {
	ID          string
	Name        string
	TriggerType BadgeTrigger
	Config      BadgeConfig
	Visibility  Visibility
	Enabled     bool
}

// BadgeAward records that a user earned a badge.
type BadgeAward struct {
	ID        string
	UserID    string
	BadgeID   string
	AwardedAt time.Time
}
