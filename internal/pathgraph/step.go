package pathgraph

import "fmt"

// StepType identifies what a learner does in a step.
type StepType string

const (
	StepCourse             StepType = "course"
	StepAssessment         StepType = "assessment"
	StepLiveSession        StepType = "live_session"
	StepPracticalChecklist StepType = "practical_checklist"
)

// AllStepTypes returns every step type.
func AllStepTypes() []StepType {
	return []StepType{StepCourse, StepAssessment, StepLiveSession, StepPracticalChecklist}
}

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	switch t {
	case StepCourse, StepAssessment, StepLiveSession, StepPracticalChecklist:
		return true
	}
	return false
}

// Threshold is an optional minimum percentage. The zero value is unset and
// is satisfied by anything.
type Threshold struct {
	value float64
	set   bool
}

// Min returns a threshold requiring at least v.
func Min(v float64) Threshold {
	return Threshold{value: v, set: true}
}

// ThresholdFrom converts an optional decoded value.
func ThresholdFrom(v *float64) Threshold {
	if v == nil {
		return Threshold{}
	}
	return Min(*v)
}

// IsSet reports whether the threshold is configured.
func (t Threshold) IsSet() bool { return t.set }

// Value returns the threshold and whether it is set.
func (t Threshold) Value() (float64, bool) { return t.value, t.set }

// SatisfiedBy reports whether actual meets the threshold.
func (t Threshold) SatisfiedBy(actual float64) bool {
	return !t.set || actual >= t.value
}

func (t Threshold) String() string {
	if !t.set {
		return "-"
	}
	return fmt.Sprintf(">=%g", t.value)
}

// Criteria are the completion thresholds of a step. All set thresholds must
// hold.
type Criteria struct {
	MinScore      Threshold
	MinAttendance Threshold
	WatchPercent  Threshold
}

// Any reports whether at least one threshold is set.
func (c Criteria) Any() bool {
	return c.MinScore.IsSet() || c.MinAttendance.IsSet() || c.WatchPercent.IsSet()
}

// BranchCondition routes a failed assessment to its remedial step. A score
// strictly below ScoreBelow triggers the branch.
type BranchCondition struct {
	ScoreBelow float64
}

// UnlockRule gates a step.
type UnlockRule struct {
	LockedUntil    string           // prerequisite step id; empty = immediately unlockable
	Anytime        bool             // optional step that may be unlocked at any time
	Branch         *BranchCondition // nil = branch on the step's MinScore
	RemedialStepID string
}

// Step is one node of a learning path.
type Step struct {
	ID         string
	Order      int
	Name       string
	Type       StepType
	ContentID  string // course or quiz the step delivers
	Mandatory  bool
	Criteria   Criteria
	GroupLabel string // steps sharing a label form a parallel group
	Unlock     UnlockRule
}

// BranchThreshold returns the score below which a failed attempt routes to
// remediation.
func (s Step) BranchThreshold() (float64, bool) {
	if s.Unlock.Branch != nil {
		return s.Unlock.Branch.ScoreBelow, true
	}
	return s.Criteria.MinScore.Value()
}
