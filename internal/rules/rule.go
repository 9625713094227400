package rules

import (
	"fmt"
	"slices"
	"time"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/condition"
	"github.com/arong/lmsengine/internal/entity"
)

// Target is the content a rule assigns.
type Target struct {
	Type entity.ContentType
	ID   string
}

// Rule is one version of an auto-assignment rule.
type Rule struct {
	ID            string
	Version       int
	Active        bool
	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended
	Conditions    []condition.Condition
	Target        Target
	Triggers      []entity.UserEventType // empty = every user event
}

// Validate checks the rule's own structure.
func (r Rule) Validate() error {
	var errs []string
	if r.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if r.Version < 1 {
		errs = append(errs, fmt.Sprintf("version must be >= 1, got %d", r.Version))
	}
	if r.EffectiveFrom.IsZero() {
		errs = append(errs, "effectiveFrom is required")
	}
	if r.EffectiveTo != nil && dayKey(*r.EffectiveTo) < dayKey(r.EffectiveFrom) {
		errs = append(errs, fmt.Sprintf("effectiveTo %s is before effectiveFrom %s",
			r.EffectiveTo.Format(time.DateOnly), r.EffectiveFrom.Format(time.DateOnly)))
	}
	if !r.Target.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unknown target type %q", r.Target.Type))
	}
	if r.Target.ID == "" {
		errs = append(errs, "target id must not be empty")
	}
	for i, c := range r.Conditions {
		if err := condition.Validate(c); err != nil {
			errs = append(errs, fmt.Sprintf("condition %d: %v", i, err))
		}
	}
	for _, t := range r.Triggers {
		if t != entity.UserCreated && t != entity.UserUpdated {
			errs = append(errs, fmt.Sprintf("unknown trigger %q", t))
		}
	}
	return apperr.NewValidation(fmt.Sprintf("rule %q v%d", r.ID, r.Version), errs)
}

// EffectiveOn reports whether day falls inside the rule's effective window.
// Only the calendar date of each bound is compared.
func (r Rule) EffectiveOn(day time.Time) bool {
	d := dayKey(day)
	if d < dayKey(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || d <= dayKey(*r.EffectiveTo)
}

// FiresOn reports whether the rule reacts to the given user event.
func (r Rule) FiresOn(evt entity.UserEventType) bool {
	return len(r.Triggers) == 0 || slices.Contains(r.Triggers, evt)
}

// dayKey maps a time to a sortable calendar-date integer (YYYYMMDD) in the
// time's own location.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
