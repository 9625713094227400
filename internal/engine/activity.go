package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/catalog"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/gamification"
	"github.com/arong/lmsengine/internal/pathgraph"
	"github.com/arong/lmsengine/internal/progression"
	"github.com/arong/lmsengine/internal/store"
)

// Award pairs a completion event with what it earned.
type Award struct {
	Event   gamification.CompletionEvent
	Outcome gamification.Outcome
}

// ActivityResult is the outcome of one learner activity event.
type ActivityResult struct {
	AssignmentID    string
	Progress        progression.Result
	ProgressPercent float64
	Completed       bool // this event completed the assignment
	Awards          []Award
}

// RecordActivity applies a learner activity event to the matching
// assignment, persists the new step state and awards points and badges for
// whatever it completed. Events for one user are processed one at a time.
func (e *Engine) RecordActivity(ctx context.Context, ev entity.ActivityEvent) (ActivityResult, error) {
	if !ev.Kind.Valid() {
		return ActivityResult{}, fmt.Errorf("record activity: unknown kind %q", ev.Kind)
	}
	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	rec, content, err := e.findAssignment(ctx, ev)
	if err != nil {
		return ActivityResult{}, err
	}

	rows, err := e.progress.LoadStepProgress(ctx, rec.ID)
	if err != nil {
		return ActivityResult{}, err
	}
	inst := progression.Restore(content.Path, fromRows(rows))

	// Course assignments have one step; activity addresses the course itself.
	if entity.ContentType(rec.ContentType) == entity.ContentCourse {
		ev.StepID = ""
	}
	res := inst.Apply(ev)
	out := ActivityResult{AssignmentID: rec.ID, Progress: res, ProgressPercent: inst.ProgressPercent()}

	if res.Skip != "" {
		e.log.Debug("activity skipped",
			zap.String("assignment", rec.ID),
			zap.String("step", res.StepID),
			zap.String("reason", string(res.Skip)))
		if res.Skip != apperr.SkipAlreadyCompleted {
			return out, nil
		}
	} else {
		if err := e.persistProgress(ctx, rec, inst, res, ev.At); err != nil {
			return out, err
		}
		out.Completed = res.PathCompleted && rec.CompletedAt == nil
	}

	for _, ce := range e.completionEvents(rec, content.Path, ev, res, out.Completed) {
		o, err := e.awarder.OnCompletionEvent(ctx, ce)
		if err != nil {
			e.log.Error("award failed", zap.String("user", ce.UserID), zap.String("trigger", string(ce.Trigger)), zap.Error(err))
			return out, err
		}
		out.Awards = append(out.Awards, Award{Event: ce, Outcome: o})
	}
	return out, nil
}

func (e *Engine) persistProgress(ctx context.Context, rec *store.AssignmentRecord, inst *progression.Instance, res progression.Result, at time.Time) error {
	completedAt := rec.CompletedAt
	if completedAt == nil && res.PathCompleted {
		done := at.UTC()
		completedAt = &done
	}

	err := e.tx.InTx(ctx, func(w store.ActivityWriter) error {
		if err := w.SaveStepProgress(ctx, rec.ID, toRows(inst.Snapshot(), at)); err != nil {
			e.log.Error("save step progress failed", zap.String("assignment", rec.ID), zap.Error(err))
			return err
		}
		if err := w.AppendTransitions(ctx, rec.ID, toTransitions(res.Transitions)); err != nil {
			e.log.Error("append transitions failed", zap.String("assignment", rec.ID), zap.Error(err))
			return err
		}
		if err := w.UpdateAssignmentProgress(ctx, rec.ID, inst.ProgressPercent(), at, completedAt); err != nil {
			e.log.Error("update assignment failed", zap.String("assignment", rec.ID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist progress for %s: %w", rec.ID, err)
	}

	for _, t := range res.Transitions {
		e.log.Debug("step transition",
			zap.String("assignment", rec.ID),
			zap.String("step", t.StepID),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
			zap.String("trigger", t.Trigger))
	}
	return nil
}

// findAssignment resolves the assignment an activity event belongs to. An
// assignment of the event's content itself wins; otherwise the first of the
// user's path assignments with a step for that content is used.
func (e *Engine) findAssignment(ctx context.Context, ev entity.ActivityEvent) (*store.AssignmentRecord, catalog.Content, error) {
	rec, err := e.assignments.GetAssignment(ctx, ev.UserID, ev.ContentID)
	if err != nil {
		return nil, catalog.Content{}, err
	}
	if rec != nil {
		content, ok := e.content.Content(entity.ContentType(rec.ContentType), rec.ContentID)
		if !ok {
			return nil, catalog.Content{}, fmt.Errorf("record activity on %s %q: %w", rec.ContentType, rec.ContentID, ErrUnknownContent)
		}
		return rec, content, nil
	}

	recs, err := e.assignments.ListAssignments(ctx, ev.UserID)
	if err != nil {
		return nil, catalog.Content{}, err
	}
	for i := range recs {
		if entity.ContentType(recs[i].ContentType) != entity.ContentPath {
			continue
		}
		content, ok := e.content.Content(entity.ContentPath, recs[i].ContentID)
		if !ok {
			continue
		}
		if _, ok := content.Path.StepForContent(ev.ContentID); ok {
			return &recs[i], content, nil
		}
	}
	return nil, catalog.Content{}, fmt.Errorf("record activity for %s on %q: %w", ev.UserID, ev.ContentID, ErrNotAssigned)
}

// directWriter issues activity writes without a transaction.
type directWriter struct {
	store.ProgressRepo
	store.AssignmentRepo
}

func (d directWriter) InTx(_ context.Context, fn func(w store.ActivityWriter) error) error {
	return fn(d)
}

// completionEvents maps one applied activity to the gamification events it
// produces:
//
//	lesson_view reaching 100%      -> lesson_complete
//	course step completed          -> course_complete
//	assessment step completed      -> quiz_pass
//	live_session step completed    -> attendance_bonus
//	assignment completed on time   -> on_time_bonus
//	path assignment completed      -> path_complete
func (e *Engine) completionEvents(rec *store.AssignmentRecord, p *pathgraph.Path, ev entity.ActivityEvent, res progression.Result, assignmentDone bool) []gamification.CompletionEvent {
	var out []gamification.CompletionEvent
	emit := func(t gamification.Trigger, source string, onTime bool) {
		out = append(out, gamification.CompletionEvent{
			UserID:   rec.UserID,
			Trigger:  t,
			SourceID: source,
			At:       ev.At,
			OnTime:   onTime,
		})
	}
	onTime := assignmentDone && (rec.DueAt == nil || !ev.At.After(*rec.DueAt))
	isCourse := entity.ContentType(rec.ContentType) == entity.ContentCourse

	if step, ok := p.Step(res.StepID); ok && ev.Kind == entity.LessonView && ev.Value >= 100 {
		emit(gamification.TriggerLessonComplete, step.ContentID, false)
	}

	for _, id := range res.Completed() {
		step, ok := p.Step(id)
		if !ok {
			continue
		}
		switch step.Type {
		case pathgraph.StepCourse:
			emit(gamification.TriggerCourseComplete, step.ContentID, isCourse && onTime)
		case pathgraph.StepAssessment:
			emit(gamification.TriggerQuizPass, step.ContentID, false)
		case pathgraph.StepLiveSession:
			emit(gamification.TriggerAttendanceBonus, step.ContentID, false)
		}
	}

	if assignmentDone {
		if !isCourse {
			emit(gamification.TriggerPathComplete, rec.ContentID, onTime)
		}
		if onTime && rec.DueAt != nil {
			emit(gamification.TriggerOnTimeBonus, rec.ContentID, false)
		}
	}
	return out
}
