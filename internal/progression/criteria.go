package progression

import (
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/pathgraph"
)

// record folds an activity value into the step's metrics. Values are
// clamped to 0-100.
func record(sp *StepProgress, ev entity.ActivityEvent) {
	v := clampPercent(ev.Value)
	switch ev.Kind {
	case entity.QuizSubmit:
		sp.Score = v
		sp.Attempts++
	case entity.AttendanceMark:
		sp.Attendance = max(sp.Attendance, v)
	case entity.LessonView:
		sp.WatchPercent = max(sp.WatchPercent, v)
	}
	sp.UpdatedAt = ev.At
}

// criteriaMet reports whether every configured threshold holds. A score
// threshold needs at least one quiz attempt.
func criteriaMet(step pathgraph.Step, sp *StepProgress) bool {
	c := step.Criteria
	if c.MinScore.IsSet() && (sp.Attempts == 0 || !c.MinScore.SatisfiedBy(sp.Score)) {
		return false
	}
	return c.MinAttendance.SatisfiedBy(sp.Attendance) && c.WatchPercent.SatisfiedBy(sp.WatchPercent)
}

// shouldRoute reports whether a quiz attempt on an assessment falls below
// the branch threshold and a remedial step is configured.
func shouldRoute(step pathgraph.Step, sp *StepProgress, ev entity.ActivityEvent) bool {
	if step.Type != pathgraph.StepAssessment || step.Unlock.RemedialStepID == "" || ev.Kind != entity.QuizSubmit {
		return false
	}
	threshold, ok := step.BranchThreshold()
	return ok && sp.Score < threshold
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
