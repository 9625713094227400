package engine

import (
	"time"

	"github.com/arong/lmsengine/internal/progression"
	"github.com/arong/lmsengine/internal/store"
)

func toRows(steps []progression.StepProgress, at time.Time) []store.StepProgressData {
	out := make([]store.StepProgressData, len(steps))
	for i, sp := range steps {
		updated := sp.UpdatedAt
		if updated.IsZero() {
			updated = at
		}
		out[i] = store.StepProgressData{
			StepID:       sp.StepID,
			State:        string(sp.State),
			Score:        sp.Score,
			Attendance:   sp.Attendance,
			WatchPercent: sp.WatchPercent,
			Attempts:     sp.Attempts,
			StartedAt:    sp.StartedAt,
			CompletedAt:  sp.CompletedAt,
			UpdatedAt:    updated,
		}
	}
	return out
}

func fromRows(rows []store.StepProgressData) []progression.StepProgress {
	out := make([]progression.StepProgress, len(rows))
	for i, r := range rows {
		out[i] = progression.StepProgress{
			StepID:       r.StepID,
			State:        progression.State(r.State),
			Score:        r.Score,
			Attendance:   r.Attendance,
			WatchPercent: r.WatchPercent,
			Attempts:     r.Attempts,
			StartedAt:    r.StartedAt,
			CompletedAt:  r.CompletedAt,
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return out
}

func toTransitions(ts []progression.StepTransition) []store.TransitionData {
	out := make([]store.TransitionData, len(ts))
	for i, t := range ts {
		out[i] = store.TransitionData{
			StepID:  t.StepID,
			From:    string(t.From),
			To:      string(t.To),
			Trigger: t.Trigger,
			At:      t.At,
		}
	}
	return out
}
