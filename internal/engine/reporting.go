package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/status"
	"github.com/arong/lmsengine/internal/store"
)

// AssignmentStatus is an assignment with its status derived at read time.
type AssignmentStatus struct {
	Assignment store.AssignmentRecord
	Report     status.Report
}

// Statuses derives the status of every assignment of userID, or of every
// user when userID is empty. Nothing derived here is persisted.
func (e *Engine) Statuses(ctx context.Context, userID string, now time.Time) ([]AssignmentStatus, error) {
	recs, err := e.assignments.ListAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]AssignmentStatus, len(recs))
	for i, r := range recs {
		out[i] = AssignmentStatus{Assignment: r, Report: status.BuildReport(statusInput(r), e.statusCfg, now)}
	}
	return out, nil
}

func statusInput(r store.AssignmentRecord) status.Assignment {
	return status.Assignment{
		AssignedAt:      r.AssignedAt,
		DueAt:           r.DueAt,
		ProgressPercent: r.ProgressPercent,
		LastActivityAt:  r.LastActivityAt,
		CompletedAt:     r.CompletedAt,
	}
}

// History returns the step transitions recorded for a user's assignment.
func (e *Engine) History(ctx context.Context, userID, contentID string) ([]store.TransitionRecord, error) {
	rec, err := e.assignments.GetAssignment(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("history for %s on %q: %w", userID, contentID, ErrNotAssigned)
	}
	return e.progress.QueryTransitions(ctx, rec.ID, store.QueryOpts{})
}

// ReminderKind says why a learner is being reminded.
type ReminderKind string

const (
	ReminderDueSoon  ReminderKind = "due_soon"
	ReminderInactive ReminderKind = "inactive"
)

// Reminder is handed to the external notification dispatcher.
type Reminder struct {
	Kind         ReminderKind
	UserID       string
	AssignmentID string
	ContentType  string
	ContentID    string
	Status       status.Status
	DueAt        *time.Time
	DaysLeft     int
	LastActivity *time.Time
}

// ReminderSink delivers reminders. Implementations live outside the engine.
type ReminderSink interface {
	Send(ctx context.Context, r Reminder) error
}

// ScanReminders derives every assignment's status and sends a reminder for
// each one that is due soon or inactive. A failed send does not stop the
// scan; all failures are returned together.
func (e *Engine) ScanReminders(ctx context.Context, now time.Time, sink ReminderSink) (sent int, err error) {
	statuses, err := e.Statuses(ctx, "", now)
	if err != nil {
		return 0, err
	}

	var errs []error
	for _, st := range statuses {
		for _, r := range remindersFor(st) {
			if err := ctx.Err(); err != nil {
				return sent, err
			}
			if err := sink.Send(ctx, r); err != nil {
				e.log.Error("send reminder failed",
					zap.String("user", r.UserID),
					zap.String("assignment", r.AssignmentID),
					zap.String("kind", string(r.Kind)),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("reminder %s for %s: %w", r.Kind, r.AssignmentID, err))
				continue
			}
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func remindersFor(st AssignmentStatus) []Reminder {
	base := Reminder{
		UserID:       st.Assignment.UserID,
		AssignmentID: st.Assignment.ID,
		ContentType:  st.Assignment.ContentType,
		ContentID:    st.Assignment.ContentID,
		Status:       st.Report.Status,
		DueAt:        st.Assignment.DueAt,
		DaysLeft:     st.Report.DaysLeft,
		LastActivity: st.Assignment.LastActivityAt,
	}
	var out []Reminder
	if st.Report.DueSoon {
		r := base
		r.Kind = ReminderDueSoon
		out = append(out, r)
	}
	if st.Report.Inactive {
		r := base
		r.Kind = ReminderInactive
		out = append(out, r)
	}
	return out
}
