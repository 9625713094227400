package pathgraph

import "sort"

// Path is an ordered sequence of steps assigned as a unit.
type Path struct {
	ID    string
	Name  string
	Steps []Step
}

// Ordered returns the steps sorted by Order, then id.
func (p *Path) Ordered() []Step {
	out := make([]Step, len(p.Steps))
	copy(out, p.Steps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Step returns the step with the given id.
func (p *Path) Step(id string) (Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// StepForContent returns the first step (in order) delivering contentID.
func (p *Path) StepForContent(contentID string) (Step, bool) {
	for _, s := range p.Ordered() {
		if s.ContentID == contentID {
			return s, true
		}
	}
	return Step{}, false
}

// Dependents returns the ids of steps gated on stepID.
func (p *Path) Dependents(stepID string) []string {
	var out []string
	for _, s := range p.Ordered() {
		if s.Unlock.LockedUntil == stepID {
			out = append(out, s.ID)
		}
	}
	return out
}

// Group returns the ids of steps sharing label, in order. An empty label has
// no group.
func (p *Path) Group(label string) []string {
	if label == "" {
		return nil
	}
	var out []string
	for _, s := range p.Ordered() {
		if s.GroupLabel == label {
			out = append(out, s.ID)
		}
	}
	return out
}

// Mandatory returns the ids of mandatory steps, in order.
func (p *Path) Mandatory() []string {
	var out []string
	for _, s := range p.Ordered() {
		if s.Mandatory {
			out = append(out, s.ID)
		}
	}
	return out
}

// SingleStep wraps a standalone course as a one-step path so courses and
// paths share the progression machinery.
func SingleStep(courseID, name string, criteria Criteria) *Path {
	return &Path{
		ID:   courseID,
		Name: name,
		Steps: []Step{{
			ID:        courseID,
			Order:     1,
			Name:      name,
			Type:      StepCourse,
			ContentID: courseID,
			Mandatory: true,
			Criteria:  criteria,
		}},
	}
}
