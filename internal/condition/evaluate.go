package condition

import (
	"slices"

	"github.com/arong/lmsengine/internal/apperr"
)

// matchFunc compares a present attribute value against a condition.
type matchFunc func(actual string, values []string) bool

var dispatch = map[Op]matchFunc{
	OpEq: func(actual string, values []string) bool {
		return len(values) == 1 && actual == values[0]
	},
	OpIn: func(actual string, values []string) bool {
		return slices.Contains(values, actual)
	},
}

// Skip describes why a single condition evaluated false without a value
// mismatch.
type Skip struct {
	Condition Condition
	Reason    apperr.SkipReason
}

// Result is the outcome of evaluating a condition list.
type Result struct {
	Matched bool
	Skips   []Skip
}

// Matches reports whether subject satisfies every condition. An empty
// condition list matches.
func Matches(conds []Condition, subject map[string]string) bool {
	return Evaluate(conds, subject).Matched
}

// Evaluate is Matches with diagnostics. It stops at the first failing
// condition. It never panics on malformed input.
func Evaluate(conds []Condition, subject map[string]string) Result {
	for _, c := range conds {
		ok, reason := evaluateOne(c, subject)
		if ok {
			continue
		}
		res := Result{Matched: false}
		if reason != "" {
			res.Skips = []Skip{{Condition: c, Reason: reason}}
		}
		return res
	}
	return Result{Matched: true}
}

func evaluateOne(c Condition, subject map[string]string) (bool, apperr.SkipReason) {
	fn, ok := dispatch[c.Op]
	if !ok {
		return false, apperr.SkipUnknownOp
	}
	if !IsKnownField(c.Field) {
		return false, apperr.SkipUnknownField
	}
	actual, ok := subject[c.Field]
	if !ok {
		return false, apperr.SkipMissingAttribute
	}
	return fn(actual, c.Values), ""
}
