// Package catalog is the read-only entity store: users, courses, paths,
// assignment rules and gamification settings loaded from a YAML file.
package catalog

import (
	"sort"

	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/gamification"
	"github.com/arong/lmsengine/internal/pathgraph"
	"github.com/arong/lmsengine/internal/rules"
)

// Course is standalone assignable content.
type Course struct {
	ID        string
	Name      string
	DueInDays int // 0 = no due date
	Criteria  pathgraph.Criteria
}

// Content is assignable content resolved to the path that drives its
// progression. Courses resolve to a single-step path.
type Content struct {
	Type      entity.ContentType
	ID        string
	Name      string
	DueInDays int
	Path      *pathgraph.Path
}

// UserRepo looks up user attribute snapshots.
type UserRepo interface {
	User(id string) (entity.User, bool)
	Users() []entity.User
}

// PathRepo resolves assignable content.
type PathRepo interface {
	Content(t entity.ContentType, id string) (Content, bool)
}

// Catalog is a validated, immutable catalog.
type Catalog struct {
	APIVersion   string
	Rules        *rules.RuleSet
	Gamification gamification.Config

	users   map[string]entity.User
	courses map[string]Course
	content map[entity.ContentType]map[string]Content
}

var (
	_ UserRepo = (*Catalog)(nil)
	_ PathRepo = (*Catalog)(nil)
)

// User returns the user with the given id.
func (c *Catalog) User(id string) (entity.User, bool) {
	u, ok := c.users[id]
	return u, ok
}

// Users returns every user sorted by id.
func (c *Catalog) Users() []entity.User {
	out := make([]entity.User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Course returns the course with the given id.
func (c *Catalog) Course(id string) (Course, bool) {
	co, ok := c.courses[id]
	return co, ok
}

// Content resolves a course or path by type and id.
func (c *Catalog) Content(t entity.ContentType, id string) (Content, bool) {
	ct, ok := c.content[t][id]
	return ct, ok
}

// Paths returns every path sorted by id.
func (c *Catalog) Paths() []*pathgraph.Path {
	out := make([]*pathgraph.Path, 0, len(c.content[entity.ContentPath]))
	for _, ct := range c.content[entity.ContentPath] {
		out = append(out, ct.Path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats summarizes catalog contents.
type Stats struct {
	Users, Courses, Paths, Rules, PointsRules, Badges int
}

// Stats counts the catalog's entities.
func (c *Catalog) Stats() Stats {
	return Stats{
		Users:       len(c.users),
		Courses:     len(c.courses),
		Paths:       len(c.content[entity.ContentPath]),
		Rules:       c.Rules.Len(),
		PointsRules: len(c.Gamification.Rules),
		Badges:      len(c.Gamification.Badges),
	}
}
