package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arong/lmsengine/internal/apperr"
)

// RuleSet holds every version of every rule. At most one version per rule
// id is active.
type RuleSet struct {
	mu       sync.RWMutex
	versions map[string][]Rule // ordered by version ascending
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{versions: make(map[string][]Rule)}
}

// Load replaces the rule set with the given versions. It is the boundary at
// which structural faults are caught: invalid rules and duplicate versions
// are validation errors, two active versions of one id is an invariant
// violation. On error the set is left unchanged.
func (s *RuleSet) Load(rules []Rule) error {
	byID := make(map[string][]Rule)
	var errs []string
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		byID[r.ID] = append(byID[r.ID], r)
	}
	if err := apperr.NewValidation("rule set", errs); err != nil {
		return err
	}

	for id, vs := range byID {
		sort.Slice(vs, func(i, j int) bool { return vs[i].Version < vs[j].Version })
		active := 0
		for i, v := range vs {
			if i > 0 && vs[i-1].Version == v.Version {
				errs = append(errs, fmt.Sprintf("rule %q: duplicate version %d", id, v.Version))
			}
			if v.Active {
				active++
			}
		}
		if active > 1 {
			return &apperr.InvariantViolation{
				Subject: fmt.Sprintf("rule %q", id),
				Detail:  fmt.Sprintf("%d active versions", active),
			}
		}
	}
	if err := apperr.NewValidation("rule set", errs); err != nil {
		return err
	}

	s.mu.Lock()
	s.versions = byID
	s.mu.Unlock()
	return nil
}

// Add appends a new version of a rule. The version must be greater than
// every existing version of the same id. When the new version is active, any
// previously active version is deactivated. Past assignments are never
// re-evaluated.
func (s *RuleSet) Add(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vs := s.versions[r.ID]
	if n := len(vs); n > 0 && r.Version <= vs[n-1].Version {
		return &apperr.ValidationError{
			Subject:  fmt.Sprintf("rule %q", r.ID),
			Problems: []string{fmt.Sprintf("version %d is not greater than latest version %d", r.Version, vs[n-1].Version)},
		}
	}
	if r.Active {
		for i := range vs {
			vs[i].Active = false
		}
	}
	s.versions[r.ID] = append(vs, r)
	return nil
}

// Deactivate turns off the active version of a rule, if any.
func (s *RuleSet) Deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.versions[id] {
		s.versions[id][i].Active = false
	}
}

// Active returns the active version of a rule.
func (s *RuleSet) Active(id string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions[id] {
		if v.Active {
			return v, true
		}
	}
	return Rule{}, false
}

// Versions returns every version of a rule, oldest first.
func (s *RuleSet) Versions(id string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.versions[id]))
	copy(out, s.versions[id])
	return out
}

// ActiveOn returns the active rule versions effective on day, ordered by
// rule id ascending.
func (s *RuleSet) ActiveOn(day time.Time) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, vs := range s.versions {
		for _, v := range vs {
			if v.Active && v.EffectiveOn(day) {
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of distinct rule ids.
func (s *RuleSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions)
}
