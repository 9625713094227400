package condition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arong/lmsengine/internal/apperr"
)

// Op is the comparison applied by a condition.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// AllOps returns the supported operators.
func AllOps() []Op {
	return []Op{OpEq, OpIn}
}

// Condition is a single field/operator/value predicate against a user's
// attribute map. For OpEq, Values holds exactly one element.
type Condition struct {
	Field  string   `json:"field" yaml:"field"`
	Op     Op       `json:"op" yaml:"op"`
	Values []string `json:"values" yaml:"values"`
}

// Eq builds an equality condition.
func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Values: []string{value}}
}

// In builds a set-membership condition.
func In(field string, values ...string) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

func (c Condition) String() string {
	if c.Op == OpEq && len(c.Values) == 1 {
		return fmt.Sprintf("%s = %q", c.Field, c.Values[0])
	}
	return fmt.Sprintf("%s %s [%s]", c.Field, c.Op, strings.Join(c.Values, ", "))
}

// KnownFields lists the user attributes rules may condition on.
var KnownFields = []string{
	"role",
	"craft",
	"center",
	"complianceRequired",
	"department",
	"location",
	"group",
	"employmentType",
	"language",
}

// IsKnownField reports whether field is in the attribute registry.
func IsKnownField(field string) bool {
	return slices.Contains(KnownFields, field)
}

// Validate checks a condition's structure. Unknown fields are not rejected
// here; they evaluate to false at runtime.
func Validate(c Condition) error {
	var errs []string
	if strings.TrimSpace(c.Field) == "" {
		errs = append(errs, "field must not be empty")
	}
	switch c.Op {
	case OpEq:
		if len(c.Values) != 1 {
			errs = append(errs, fmt.Sprintf("op eq takes exactly one value, got %d", len(c.Values)))
		}
	case OpIn:
		if len(c.Values) == 0 {
			errs = append(errs, "op in requires at least one value")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown op %q", c.Op))
	}
	return apperr.NewValidation(fmt.Sprintf("condition %q", c.Field), errs)
}
