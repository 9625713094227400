// Package entity holds the records exchanged with external collaborators:
// user attribute snapshots from the HR side and learner activity events from
// the course player.
package entity

import "time"

// User is an immutable attribute snapshot of a user at evaluation time.
type User struct {
	ID         string            `json:"id" yaml:"id"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
}

// Attr returns the attribute value and whether it is present.
func (u User) Attr(field string) (string, bool) {
	v, ok := u.Attributes[field]
	return v, ok
}

// UserEventType is the lifecycle event that triggers rule evaluation.
type UserEventType string

const (
	UserCreated UserEventType = "user_created"
	UserUpdated UserEventType = "user_updated"
)

// Valid reports whether e is a known user event.
func (e UserEventType) Valid() bool {
	return e == UserCreated || e == UserUpdated
}

// ContentType is the kind of assignable content.
type ContentType string

const (
	ContentCourse ContentType = "course"
	ContentPath   ContentType = "path"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	return t == ContentCourse || t == ContentPath
}

// ActivityKind classifies a learner activity event.
type ActivityKind string

const (
	LessonView     ActivityKind = "lesson_view"
	QuizSubmit     ActivityKind = "quiz_submit"
	AttendanceMark ActivityKind = "attendance_mark"
)

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	switch k {
	case LessonView, QuizSubmit, AttendanceMark:
		return true
	}
	return false
}

// ActivityEvent is a learner action against assigned content. StepID is
// empty for course assignments, in which case the single course step is
// targeted. Value is a percentage: watch percent, quiz score or attendance.
type ActivityEvent struct {
	UserID    string       `json:"user_id"`
	ContentID string       `json:"content_id"`
	StepID    string       `json:"step_id,omitempty"`
	Kind      ActivityKind `json:"kind"`
	Value     float64      `json:"value"`
	At        time.Time    `json:"at"`
}
