package pathgraph

import (
	"fmt"
	"strings"

	"github.com/arong/lmsengine/internal/apperr"
)

// Validate performs all structural checks on a path. A step gated on a
// nonexistent prerequisite is an *apperr.InvariantViolation; every other
// problem is reported together as an *apperr.ValidationError.
func Validate(p *Path) error {
	subject := fmt.Sprintf("path %q", p.ID)

	idSet := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		idSet[s.ID] = true
	}

	// Dangling prerequisites block activation outright.
	var dangling []string
	for _, s := range p.Steps {
		if s.Unlock.LockedUntil != "" && !idSet[s.Unlock.LockedUntil] {
			dangling = append(dangling, fmt.Sprintf("step %q locked until nonexistent step %q", s.ID, s.Unlock.LockedUntil))
		}
	}
	if len(dangling) > 0 {
		return &apperr.InvariantViolation{Subject: subject, Detail: strings.Join(dangling, "; ")}
	}

	var errs []string
	if p.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if len(p.Steps) == 0 {
		errs = append(errs, "path has no steps")
	}

	seen := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.ID == "" {
			errs = append(errs, "step with empty id")
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate step ID: %q", s.ID))
		}
		seen[s.ID] = true

		if !s.Type.Valid() {
			errs = append(errs, fmt.Sprintf("step %q: unknown type %q", s.ID, s.Type))
		}
		if s.Unlock.LockedUntil == s.ID && s.ID != "" {
			errs = append(errs, fmt.Sprintf("step %q is locked until itself", s.ID))
		}
		errs = append(errs, validateCriteria(s)...)
		errs = append(errs, validateRemedial(s, idSet)...)
	}

	if cycle := findCycle(p.Steps); len(cycle) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving steps: %s", strings.Join(cycle, ", ")))
	}

	return apperr.NewValidation(subject, errs)
}

func validateCriteria(s Step) []string {
	var errs []string
	check := func(name string, t Threshold) {
		if v, ok := t.Value(); ok && (v < 0 || v > 100) {
			errs = append(errs, fmt.Sprintf("step %q: %s must be in [0, 100], got %g", s.ID, name, v))
		}
	}
	check("minScore", s.Criteria.MinScore)
	check("minAttendance", s.Criteria.MinAttendance)
	check("watchPercent", s.Criteria.WatchPercent)
	if b := s.Unlock.Branch; b != nil && (b.ScoreBelow < 0 || b.ScoreBelow > 100) {
		errs = append(errs, fmt.Sprintf("step %q: branch scoreBelow must be in [0, 100], got %g", s.ID, b.ScoreBelow))
	}
	return errs
}

func validateRemedial(s Step, idSet map[string]bool) []string {
	var errs []string
	if s.Unlock.Branch != nil && s.Unlock.RemedialStepID == "" {
		errs = append(errs, fmt.Sprintf("step %q: branch condition without remedial step", s.ID))
	}
	if s.Unlock.RemedialStepID == "" {
		return errs
	}
	if s.Type != StepAssessment {
		errs = append(errs, fmt.Sprintf("step %q: remedial routing requires an assessment step, got %q", s.ID, s.Type))
	}
	if s.Unlock.RemedialStepID == s.ID {
		errs = append(errs, fmt.Sprintf("step %q is its own remedial step", s.ID))
	} else if !idSet[s.Unlock.RemedialStepID] {
		errs = append(errs, fmt.Sprintf("step %q references nonexistent remedial step %q", s.ID, s.Unlock.RemedialStepID))
	}
	if _, ok := s.BranchThreshold(); !ok {
		errs = append(errs, fmt.Sprintf("step %q: remedial routing needs minScore or a branch condition", s.ID))
	}
	return errs
}

// findCycle runs Kahn's algorithm over the LockedUntil edges and returns the
// ids of steps left on a cycle, in declaration order.
func findCycle(steps []Step) []string {
	inDegree := make(map[string]int, len(steps))
	adjList := make(map[string][]string)
	for _, s := range steps {
		if s.Unlock.LockedUntil != "" {
			inDegree[s.ID] = 1
			adjList[s.Unlock.LockedUntil] = append(adjList[s.Unlock.LockedUntil], s.ID)
		} else {
			inDegree[s.ID] = 0
		}
	}

	var queue []string
	for _, s := range steps {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited >= len(inDegree) {
		return nil
	}
	var cycleNodes []string
	for _, s := range steps {
		if inDegree[s.ID] > 0 {
			cycleNodes = append(cycleNodes, s.ID)
		}
	}
	return cycleNodes
}
