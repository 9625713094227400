package progression

import (
	"time"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/pathgraph"
)

// Instance is one learner's progression through one path.
type Instance struct {
	path  *pathgraph.Path
	steps map[string]*StepProgress
}

// Result is the outcome of applying one activity event.
type Result struct {
	StepID        string
	Transitions   []StepTransition
	Skip          apperr.SkipReason // set when the event was a no-op
	PathCompleted bool              // the event completed the path
}

// Completed returns the ids of steps that reached completed in this result.
func (r Result) Completed() []string {
	var out []string
	for _, t := range r.Transitions {
		if t.To == StateCompleted {
			out = append(out, t.StepID)
		}
	}
	return out
}

// NewInstance creates an instance in its initial state: steps without a
// prerequisite, and optional "anytime" steps, start unlocked; the rest start
// locked. The path must already be validated.
func NewInstance(p *pathgraph.Path) *Instance {
	in := &Instance{path: p, steps: make(map[string]*StepProgress, len(p.Steps))}
	for _, s := range p.Steps {
		in.steps[s.ID] = &StepProgress{StepID: s.ID, State: initialState(s)}
	}
	return in
}

// Restore rebuilds an instance from persisted progress. Steps without a row
// take their initial state, rows for unknown steps are ignored, and locked
// steps whose prerequisite is already satisfied are unlocked.
func Restore(p *pathgraph.Path, rows []StepProgress) *Instance {
	in := NewInstance(p)
	for _, r := range rows {
		if _, ok := in.steps[r.StepID]; !ok {
			continue
		}
		row := r
		in.steps[r.StepID] = &row
	}
	for _, s := range p.Ordered() {
		sp := in.steps[s.ID]
		if sp.State == StateLocked && in.prerequisiteSatisfied(s) {
			sp.State = StateUnlocked
		}
	}
	return in
}

func initialState(s pathgraph.Step) State {
	if s.Unlock.LockedUntil == "" || s.Unlock.Anytime {
		return StateUnlocked
	}
	return StateLocked
}

// Path returns the path definition.
func (in *Instance) Path() *pathgraph.Path { return in.path }

// Progress returns a copy of a step's progress.
func (in *Instance) Progress(stepID string) (StepProgress, bool) {
	sp, ok := in.steps[stepID]
	if !ok {
		return StepProgress{}, false
	}
	return *sp, true
}

// Snapshot returns a copy of every step's progress in path order.
func (in *Instance) Snapshot() []StepProgress {
	out := make([]StepProgress, 0, len(in.steps))
	for _, s := range in.path.Ordered() {
		out = append(out, *in.steps[s.ID])
	}
	return out
}

// Apply feeds one learner activity event through the state machine.
func (in *Instance) Apply(ev entity.ActivityEvent) Result {
	step, ok := in.resolveStep(ev)
	if !ok {
		return Result{Skip: apperr.SkipUnknownStep}
	}
	res := Result{StepID: step.ID}
	sp := in.steps[step.ID]
	wasComplete := in.PathCompleted()

	switch sp.State {
	case StateLocked:
		res.Skip = apperr.SkipStepLocked
		return res
	case StateCompleted:
		res.Skip = apperr.SkipAlreadyCompleted
		return res
	case StateUnlocked:
		at := ev.At
		sp.StartedAt = &at
		in.transition(&res, sp, StateInProgress, TriggerFirstActivity, ev.At)
	case StateFailedRemedial:
		if ev.Kind == entity.QuizSubmit {
			in.transition(&res, sp, StateInProgress, TriggerRetake, ev.At)
		}
	}

	record(sp, ev)

	if sp.State == StateInProgress {
		switch {
		case criteriaMet(step, sp):
			in.complete(&res, step, ev.At)
		case shouldRoute(step, sp, ev):
			in.transition(&res, sp, StateFailedRemedial, TriggerRemedialRouted, ev.At)
			remedial := in.steps[step.Unlock.RemedialStepID]
			if remedial.State == StateLocked {
				in.transition(&res, remedial, StateUnlocked, TriggerForceUnlock, ev.At)
			}
		}
	}

	res.PathCompleted = !wasComplete && in.PathCompleted()
	return res
}

func (in *Instance) resolveStep(ev entity.ActivityEvent) (pathgraph.Step, bool) {
	if ev.StepID != "" {
		return in.path.Step(ev.StepID)
	}
	if s, ok := in.path.StepForContent(ev.ContentID); ok {
		return s, true
	}
	if len(in.path.Steps) == 1 {
		return in.path.Steps[0], true
	}
	return pathgraph.Step{}, false
}

func (in *Instance) transition(res *Result, sp *StepProgress, to State, trigger string, at time.Time) {
	res.Transitions = append(res.Transitions, StepTransition{
		StepID:  sp.StepID,
		From:    sp.State,
		To:      to,
		Trigger: trigger,
		At:      at,
	})
	sp.State = to
	sp.UpdatedAt = at
}

// complete marks a step done and cascades: dependents whose gate is now
// satisfied unlock, and assessments waiting on this step as remediation
// return to in_progress for a retake.
func (in *Instance) complete(res *Result, step pathgraph.Step, at time.Time) {
	sp := in.steps[step.ID]
	done := at
	sp.CompletedAt = &done
	in.transition(res, sp, StateCompleted, TriggerCriteriaMet, at)

	for _, s := range in.path.Ordered() {
		other := in.steps[s.ID]
		if other.State == StateLocked && in.prerequisiteSatisfied(s) {
			in.transition(res, other, StateUnlocked, TriggerPrerequisiteComplete, at)
		}
		if other.State == StateFailedRemedial && s.Unlock.RemedialStepID == step.ID {
			in.transition(res, other, StateInProgress, TriggerRemediationComplete, at)
		}
	}
}

// prerequisiteSatisfied reports whether a step's gate is open. A prerequisite
// that belongs to a group counts only once every step of the group is
// completed.
func (in *Instance) prerequisiteSatisfied(s pathgraph.Step) bool {
	if s.Unlock.LockedUntil == "" || s.Unlock.Anytime {
		return true
	}
	prereq, ok := in.path.Step(s.Unlock.LockedUntil)
	if !ok || in.steps[prereq.ID].State != StateCompleted {
		return false
	}
	for _, id := range in.path.Group(prereq.GroupLabel) {
		if in.steps[id].State != StateCompleted {
			return false
		}
	}
	return true
}

// required returns the steps that gate path completion: mandatory steps
// plus every member of a group that has a mandatory member. A path with no
// mandatory steps requires all of them.
func (in *Instance) required() []string {
	set := make(map[string]bool)
	for _, s := range in.path.Steps {
		if !s.Mandatory {
			continue
		}
		set[s.ID] = true
		for _, id := range in.path.Group(s.GroupLabel) {
			set[id] = true
		}
	}
	var out []string
	for _, s := range in.path.Ordered() {
		if len(set) == 0 || set[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}

// PathCompleted reports whether every required step is completed.
func (in *Instance) PathCompleted() bool {
	for _, id := range in.required() {
		if in.steps[id].State != StateCompleted {
			return false
		}
	}
	return true
}

// ProgressPercent returns the share of required steps completed, 0-100.
func (in *Instance) ProgressPercent() float64 {
	req := in.required()
	if len(req) == 0 {
		return 0
	}
	done := 0
	for _, id := range req {
		if in.steps[id].State == StateCompleted {
			done++
		}
	}
	return float64(done) * 100 / float64(len(req))
}
