// Package apperr defines the engine's error taxonomy.
//
// Authoring problems surface as *ValidationError, structural faults found
// while loading a catalog surface as *InvariantViolation. Evaluation-time
// no-ops are not errors at all: they are reported as a SkipReason.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a rule, path or catalog at authoring time.
type ValidationError struct {
	Subject  string // e.g. `rule "r1"`, `path "P1"`
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.Subject, e.Problems[0])
	}
	return fmt.Sprintf("%s validation failed:\n  %s", e.Subject, strings.Join(e.Problems, "\n  "))
}

// NewValidation returns a *ValidationError, or nil if problems is empty.
func NewValidation(subject string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Subject: subject, Problems: problems}
}

// InvariantViolation blocks activation of a rule set or path whose structure
// would corrupt runtime state.
type InvariantViolation struct {
	Subject string
	Detail  string
	Err     error
}

func (e *InvariantViolation) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant violation in %s: %s: %v", e.Subject, e.Detail, e.Err)
	}
	return fmt.Sprintf("invariant violation in %s: %s", e.Subject, e.Detail)
}

func (e *InvariantViolation) Unwrap() error { return e.Err }

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvariant reports whether err wraps an *InvariantViolation.
func IsInvariant(err error) bool {
	var v *InvariantViolation
	return errors.As(err, &v)
}

// SkipReason explains an evaluation that ended as a no-op.
type SkipReason string

const (
	SkipRuleDisabled        SkipReason = "rule_disabled"
	SkipNoRule              SkipReason = "no_rule"
	SkipDuplicateRewatch    SkipReason = "duplicate_rewatch"
	SkipCapExhausted        SkipReason = "cap_exhausted"
	SkipStepLocked          SkipReason = "step_locked"
	SkipAlreadyCompleted    SkipReason = "already_completed"
	SkipUnknownStep         SkipReason = "unknown_step"
	SkipBadgeAlreadyAwarded SkipReason = "badge_already_awarded"
	SkipMissingAttribute    SkipReason = "missing_attribute"
	SkipUnknownField        SkipReason = "unknown_field"
	SkipUnknownOp           SkipReason = "unknown_op"
)
