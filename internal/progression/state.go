package progression

import "time"

// State is a step's position in the progression lifecycle.
type State string

const (
	StateLocked         State = "locked"
	StateUnlocked       State = "unlocked"
	StateInProgress     State = "in_progress"
	StateCompleted      State = "completed"
	StateFailedRemedial State = "failed_remedial"
)

// Transition triggers.
const (
	TriggerFirstActivity        = "first-activity"
	TriggerCriteriaMet          = "criteria-met"
	TriggerPrerequisiteComplete = "prerequisite-complete"
	TriggerRemedialRouted       = "remedial-routed"
	TriggerForceUnlock          = "force-unlock"
	TriggerRetake               = "retake"
	TriggerRemediationComplete  = "remediation-complete"
)

// StepProgress is a learner's progress on one step of an assigned path.
type StepProgress struct {
	StepID       string
	State        State
	Score        float64 // latest quiz attempt
	Attendance   float64 // best attendance seen
	WatchPercent float64 // best watch percent seen
	Attempts     int     // quiz submissions
	StartedAt    *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// StepTransition records a step state change for persistence and display.
type StepTransition struct {
	StepID  string
	From    State
	To      State
	Trigger string
	At      time.Time
}
