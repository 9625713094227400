// Package status derives assignment status from timestamps. Nothing here is
// persisted: every value is recomputed on read from the assignment record
// and the current time.
package status

import "time"

// Status is the derived lifecycle status of an assignment.
type Status string

const (
	Assigned   Status = "assigned"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Overdue    Status = "overdue"
)

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{Assigned, InProgress, Overdue, Completed}
}

// InactivityThreshold is a supported inactivity window.
type InactivityThreshold int

const (
	Threshold14 InactivityThreshold = 14
	Threshold30 InactivityThreshold = 30
)

// Days returns the window as a duration.
func (t InactivityThreshold) Days() time.Duration {
	return time.Duration(t) * 24 * time.Hour
}

// ParseThreshold maps a configured day count to a supported threshold.
// Values other than 30 select the 14-day window.
func ParseThreshold(days int) InactivityThreshold {
	if days == int(Threshold30) {
		return Threshold30
	}
	return Threshold14
}

// DefaultDueSoonDays is the default look-ahead for IsDueSoon.
const DefaultDueSoonDays = 7

// Assignment is the subset of an assignment record status depends on.
type Assignment struct {
	AssignedAt      time.Time
	DueAt           *time.Time // nil = no due date
	ProgressPercent float64
	LastActivityAt  *time.Time // nil = no activity yet
	CompletedAt     *time.Time
}

// Derive computes the status of a at now.
func Derive(a Assignment, now time.Time) Status {
	switch {
	case a.CompletedAt != nil:
		return Completed
	case a.DueAt != nil && a.DueAt.Before(now):
		return Overdue
	case a.ProgressPercent > 0:
		return InProgress
	default:
		return Assigned
	}
}

// IsInactive reports whether an incomplete assignment has seen no activity
// for at least the threshold. Assignments never touched count from
// AssignedAt.
func IsInactive(a Assignment, threshold InactivityThreshold, now time.Time) bool {
	if Derive(a, now) == Completed {
		return false
	}
	last := a.AssignedAt
	if a.LastActivityAt != nil {
		last = *a.LastActivityAt
	}
	return now.Sub(last) >= threshold.Days()
}

// IsDueSoon reports whether an open assignment falls due within
// [now, now+withinDays].
func IsDueSoon(a Assignment, withinDays int, now time.Time) bool {
	if a.DueAt == nil {
		return false
	}
	switch Derive(a, now) {
	case Completed, Overdue:
		return false
	}
	horizon := now.Add(time.Duration(withinDays) * 24 * time.Hour)
	return !a.DueAt.Before(now) && !a.DueAt.After(horizon)
}

// Config selects the windows used by Report.
type Config struct {
	Inactivity  InactivityThreshold
	DueSoonDays int
}

// DefaultConfig returns the standard reporting windows.
func DefaultConfig() Config {
	return Config{Inactivity: Threshold14, DueSoonDays: DefaultDueSoonDays}
}

// Report bundles every derived value for reporting and reminder consumers.
type Report struct {
	Status   Status
	Inactive bool
	DueSoon  bool
	DaysLeft int // whole days until due; 0 when no due date
}

// BuildReport derives a Report for a at now.
func BuildReport(a Assignment, cfg Config, now time.Time) Report {
	r := Report{
		Status:   Derive(a, now),
		Inactive: IsInactive(a, cfg.Inactivity, now),
		DueSoon:  IsDueSoon(a, cfg.DueSoonDays, now),
	}
	if a.DueAt != nil {
		r.DaysLeft = int(a.DueAt.Sub(now) / (24 * time.Hour))
	}
	return r
}
