package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/pathgraph"
)

var t0 = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func ev(step string, kind entity.ActivityKind, v float64) entity.ActivityEvent {
	return entity.ActivityEvent{UserID: "u1", ContentID: "P1", StepID: step, Kind: kind, Value: v, At: t0}
}

// scenarioPath is Intro (unlocked) → Quiz (locked until Intro, pass 60,
// remedial Refresher).
func scenarioPath() *pathgraph.Path {
	p := &pathgraph.Path{
		ID: "P1",
		Steps: []pathgraph.Step{
			{ID: "intro", Order: 1, Type: pathgraph.StepCourse, ContentID: "C-intro", Mandatory: true,
				Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(100)}},
			{ID: "quiz", Order: 2, Type: pathgraph.StepAssessment, ContentID: "Q-1", Mandatory: true,
				Criteria: pathgraph.Criteria{MinScore: pathgraph.Min(60)},
				Unlock:   pathgraph.UnlockRule{LockedUntil: "intro", RemedialStepID: "refresher"}},
			{ID: "refresher", Order: 3, Type: pathgraph.StepCourse, ContentID: "C-refresh",
				Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(80)},
				Unlock:   pathgraph.UnlockRule{LockedUntil: "quiz"}},
		},
	}
	if err := pathgraph.Validate(p); err != nil {
		panic(err)
	}
	return p
}

func state(t *testing.T, in *Instance, id string) State {
	t.Helper()
	sp, ok := in.Progress(id)
	require.True(t, ok, "step %s", id)
	return sp.State
}

func TestNewInstance_InitialStates(t *testing.T) {
	p := scenarioPath()
	p.Steps = append(p.Steps, pathgraph.Step{
		ID: "bonus", Order: 4, Type: pathgraph.StepPracticalChecklist,
		Unlock: pathgraph.UnlockRule{LockedUntil: "quiz", Anytime: true},
	})
	in := NewInstance(p)

	assert.Equal(t, StateUnlocked, state(t, in, "intro"))
	assert.Equal(t, StateLocked, state(t, in, "quiz"))
	assert.Equal(t, StateLocked, state(t, in, "refresher"))
	assert.Equal(t, StateUnlocked, state(t, in, "bonus"), "anytime steps start unlocked")
}

func TestApply_ScenarioIntroUnlocksQuiz(t *testing.T) {
	in := NewInstance(scenarioPath())

	res := in.Apply(ev("intro", entity.LessonView, 40))
	assert.Equal(t, StateInProgress, state(t, in, "intro"))
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, TriggerFirstActivity, res.Transitions[0].Trigger)

	res = in.Apply(ev("intro", entity.LessonView, 100))
	assert.Equal(t, StateCompleted, state(t, in, "intro"))
	assert.Equal(t, StateUnlocked, state(t, in, "quiz"))
	assert.Equal(t, []string{"intro"}, res.Completed())
	assert.False(t, res.PathCompleted)
}

func TestApply_FailedQuizRoutesToRemedial(t *testing.T) {
	in := NewInstance(scenarioPath())
	in.Apply(ev("intro", entity.LessonView, 100))

	res := in.Apply(ev("quiz", entity.QuizSubmit, 50))
	assert.Equal(t, StateFailedRemedial, state(t, in, "quiz"))
	assert.Equal(t, StateUnlocked, state(t, in, "refresher"), "remedial is force-unlocked")

	var triggers []string
	for _, tr := range res.Transitions {
		triggers = append(triggers, tr.Trigger)
	}
	assert.Equal(t, []string{TriggerFirstActivity, TriggerRemedialRouted, TriggerForceUnlock}, triggers)

	// Completing remediation sends the learner back to the quiz.
	in.Apply(ev("refresher", entity.LessonView, 90))
	assert.Equal(t, StateCompleted, state(t, in, "refresher"))
	assert.Equal(t, StateInProgress, state(t, in, "quiz"))

	res = in.Apply(ev("quiz", entity.QuizSubmit, 75))
	assert.Equal(t, StateCompleted, state(t, in, "quiz"))
	assert.True(t, res.PathCompleted)
}

func TestApply_RetakeFromFailedRemedial(t *testing.T) {
	in := NewInstance(scenarioPath())
	in.Apply(ev("intro", entity.LessonView, 100))
	in.Apply(ev("quiz", entity.QuizSubmit, 10))

	res := in.Apply(ev("quiz", entity.QuizSubmit, 61))
	assert.Equal(t, StateCompleted, state(t, in, "quiz"))
	assert.Equal(t, TriggerRetake, res.Transitions[0].Trigger)

	sp, _ := in.Progress("quiz")
	assert.Equal(t, 2, sp.Attempts)
	assert.Equal(t, 61.0, sp.Score)
}

func TestApply_FailedQuizWithoutRemedialStaysInProgress(t *testing.T) {
	p := scenarioPath()
	p.Steps[1].Unlock.RemedialStepID = ""
	in := NewInstance(p)
	in.Apply(ev("intro", entity.LessonView, 100))

	res := in.Apply(ev("quiz", entity.QuizSubmit, 50))
	assert.Equal(t, StateInProgress, state(t, in, "quiz"))
	assert.Equal(t, StateLocked, state(t, in, "refresher"))
	assert.Empty(t, res.Completed())
}

func TestApply_BranchConditionBelowMinScore(t *testing.T) {
	p := scenarioPath()
	p.Steps[1].Unlock.Branch = &pathgraph.BranchCondition{ScoreBelow: 40}
	in := NewInstance(p)
	in.Apply(ev("intro", entity.LessonView, 100))

	// Below pass mark but above the branch threshold: keep trying.
	in.Apply(ev("quiz", entity.QuizSubmit, 50))
	assert.Equal(t, StateInProgress, state(t, in, "quiz"))

	in.Apply(ev("quiz", entity.QuizSubmit, 30))
	assert.Equal(t, StateFailedRemedial, state(t, in, "quiz"))
}

func TestApply_CriteriaAreANDed(t *testing.T) {
	newPath := func() *pathgraph.Path {
		return &pathgraph.Path{ID: "P", Steps: []pathgraph.Step{{
			ID: "workshop", Type: pathgraph.StepLiveSession, Mandatory: true,
			Criteria: pathgraph.Criteria{MinScore: pathgraph.Min(60), MinAttendance: pathgraph.Min(80)},
		}}}
	}

	in := NewInstance(newPath())
	in.Apply(ev("workshop", entity.QuizSubmit, 70))
	in.Apply(ev("workshop", entity.AttendanceMark, 75))
	assert.Equal(t, StateInProgress, state(t, in, "workshop"), "score=70, attendance=75 must not complete")

	in = NewInstance(newPath())
	in.Apply(ev("workshop", entity.QuizSubmit, 70))
	res := in.Apply(ev("workshop", entity.AttendanceMark, 85))
	assert.Equal(t, StateCompleted, state(t, in, "workshop"), "score=70, attendance=85 completes")
	assert.True(t, res.PathCompleted)
}

func TestApply_ScoreThresholdNeedsAttempt(t *testing.T) {
	p := &pathgraph.Path{ID: "P", Steps: []pathgraph.Step{{
		ID: "s", Type: pathgraph.StepAssessment, Mandatory: true,
		Criteria: pathgraph.Criteria{MinScore: pathgraph.Min(0)},
	}}}
	in := NewInstance(p)
	in.Apply(ev("s", entity.LessonView, 100))
	assert.Equal(t, StateInProgress, state(t, in, "s"))
	in.Apply(ev("s", entity.QuizSubmit, 0))
	assert.Equal(t, StateCompleted, state(t, in, "s"))
}

func TestApply_NoCriteriaCompletesOnFirstActivity(t *testing.T) {
	p := &pathgraph.Path{ID: "P", Steps: []pathgraph.Step{{ID: "check", Type: pathgraph.StepPracticalChecklist, Mandatory: true}}}
	in := NewInstance(p)
	res := in.Apply(ev("check", entity.AttendanceMark, 100))
	require.Len(t, res.Transitions, 2)
	assert.Equal(t, StateCompleted, state(t, in, "check"))
}

func TestApply_Skips(t *testing.T) {
	in := NewInstance(scenarioPath())

	res := in.Apply(ev("quiz", entity.QuizSubmit, 100))
	assert.Equal(t, apperr.SkipStepLocked, res.Skip)
	assert.Equal(t, StateLocked, state(t, in, "quiz"))

	res = in.Apply(ev("ghost", entity.LessonView, 100))
	assert.Equal(t, apperr.SkipUnknownStep, res.Skip)

	in.Apply(ev("intro", entity.LessonView, 100))
	res = in.Apply(ev("intro", entity.LessonView, 100))
	assert.Equal(t, apperr.SkipAlreadyCompleted, res.Skip, "resync must not re-complete")
	assert.Empty(t, res.Transitions)
}

func TestApply_ResolvesStepByContent(t *testing.T) {
	in := NewInstance(scenarioPath())
	e := ev("", entity.LessonView, 100)
	e.ContentID = "C-intro"
	res := in.Apply(e)
	assert.Equal(t, "intro", res.StepID)
	assert.Equal(t, StateCompleted, state(t, in, "intro"))
}

func TestApply_SingleStepCourse(t *testing.T) {
	in := NewInstance(pathgraph.SingleStep("C-1", "Course", pathgraph.Criteria{WatchPercent: pathgraph.Min(90)}))
	res := in.Apply(entity.ActivityEvent{ContentID: "C-1", Kind: entity.LessonView, Value: 95, At: t0})
	assert.True(t, res.PathCompleted)
	assert.Equal(t, 100.0, in.ProgressPercent())
}

func TestApply_ValuesClamped(t *testing.T) {
	in := NewInstance(scenarioPath())
	in.Apply(ev("intro", entity.LessonView, 250))
	sp, _ := in.Progress("intro")
	assert.Equal(t, 100.0, sp.WatchPercent)
}

func TestGroupRequiresEveryMember(t *testing.T) {
	p := &pathgraph.Path{ID: "P", Steps: []pathgraph.Step{
		{ID: "a", Order: 1, Type: pathgraph.StepCourse, Mandatory: true, GroupLabel: "core",
			Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(100)}},
		{ID: "b", Order: 1, Type: pathgraph.StepCourse, GroupLabel: "core",
			Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(100)}},
		{ID: "next", Order: 2, Type: pathgraph.StepAssessment, Mandatory: true,
			Criteria: pathgraph.Criteria{MinScore: pathgraph.Min(50)},
			Unlock:   pathgraph.UnlockRule{LockedUntil: "a"}},
	}}
	require.NoError(t, pathgraph.Validate(p))
	in := NewInstance(p)

	in.Apply(ev("a", entity.LessonView, 100))
	assert.Equal(t, StateLocked, state(t, in, "next"), "group not complete yet")

	res := in.Apply(ev("b", entity.LessonView, 100))
	assert.Equal(t, StateUnlocked, state(t, in, "next"))
	assert.Contains(t, res.Transitions, StepTransition{
		StepID: "next", From: StateLocked, To: StateUnlocked, Trigger: TriggerPrerequisiteComplete, At: t0,
	})

	// "b" is optional on its own but required as a member of a mandatory group.
	assert.InDelta(t, 66.67, in.ProgressPercent(), 0.01)
}

func TestPathCompletion_OptionalStepsDoNotBlock(t *testing.T) {
	in := NewInstance(scenarioPath())
	in.Apply(ev("intro", entity.LessonView, 100))
	assert.Equal(t, 50.0, in.ProgressPercent())

	res := in.Apply(ev("quiz", entity.QuizSubmit, 90))
	assert.True(t, res.PathCompleted)
	assert.True(t, in.PathCompleted())
	assert.Equal(t, StateUnlocked, state(t, in, "refresher"), "optional step still open")
}

func TestPathCompletion_AllOptionalRequiresEveryStep(t *testing.T) {
	p := &pathgraph.Path{ID: "P", Steps: []pathgraph.Step{
		{ID: "a", Order: 1, Type: pathgraph.StepCourse, ContentID: "C-a",
			Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(100)}},
		{ID: "b", Order: 2, Type: pathgraph.StepCourse, ContentID: "C-b",
			Criteria: pathgraph.Criteria{WatchPercent: pathgraph.Min(100)}},
	}}
	require.NoError(t, pathgraph.Validate(p))
	in := NewInstance(p)
	assert.False(t, in.PathCompleted(), "a fresh path is never complete")
	assert.Zero(t, in.ProgressPercent())

	res := in.Apply(ev("a", entity.LessonView, 100))
	assert.False(t, res.PathCompleted)
	assert.Equal(t, 50.0, in.ProgressPercent())

	res = in.Apply(ev("b", entity.LessonView, 100))
	assert.True(t, res.PathCompleted)
	assert.True(t, in.PathCompleted())
}

func TestRestore(t *testing.T) {
	p := scenarioPath()
	done := t0
	in := Restore(p, []StepProgress{
		{StepID: "intro", State: StateCompleted, WatchPercent: 100, CompletedAt: &done},
		{StepID: "stale", State: StateCompleted},
	})

	assert.Equal(t, StateCompleted, state(t, in, "intro"))
	assert.Equal(t, StateUnlocked, state(t, in, "quiz"), "gate reconciled on restore")
	assert.Equal(t, StateLocked, state(t, in, "refresher"))
	_, ok := in.Progress("stale")
	assert.False(t, ok)
	assert.Len(t, in.Snapshot(), 3)
}
