package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/gamification"
	"github.com/arong/lmsengine/internal/pathgraph"
)

func TestLoadTestdata(t *testing.T) {
	c, err := Load("testdata/catalog.yaml")
	require.NoError(t, err)

	assert.Equal(t, Stats{Users: 3, Courses: 2, Paths: 1, Rules: 2, PointsRules: 6, Badges: 3}, c.Stats())

	u, ok := c.User("u-ana")
	require.True(t, ok)
	assert.Equal(t, "embroidery", u.Attributes["craft"])

	p1, ok := c.Content(entity.ContentPath, "P1")
	require.True(t, ok)
	assert.Equal(t, 45, p1.DueInDays)
	require.Len(t, p1.Path.Steps, 5)
	refresher, _ := p1.Path.Step("refresher")
	assert.False(t, refresher.Mandatory)
	quiz, _ := p1.Path.Step("quiz")
	assert.Equal(t, 2, quiz.Order)
	assert.Equal(t, pathgraph.Min(60), quiz.Criteria.MinScore)
	assert.False(t, quiz.Criteria.WatchPercent.IsSet())

	intro, ok := c.Content(entity.ContentCourse, "C-intro")
	require.True(t, ok)
	require.Len(t, intro.Path.Steps, 1)
	assert.Equal(t, "C-intro", intro.Path.Steps[0].ContentID)

	r2, ok := c.Rules.Active("R2")
	require.True(t, ok)
	assert.Equal(t, 2, r2.Version)
	assert.Len(t, c.Rules.Versions("R2"), 2)

	active := c.Rules.ActiveOn(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, active, 2)
	assert.Equal(t, "R1", active[0].ID)

	assert.Equal(t, gamification.Policy{DailyCap: 100, NoDuplicateRewatch: true}, c.Gamification.Policy)
	assert.Equal(t, gamification.VisibilityPublic, c.Gamification.Badges[0].Visibility)
	assert.Equal(t, gamification.VisibilityTeam, c.Gamification.Badges[1].Visibility)
}

func TestUsersSorted(t *testing.T) {
	c, err := Load("testdata/catalog.yaml")
	require.NoError(t, err)
	var ids []string
	for _, u := range c.Users() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"u-ana", "u-ben", "u-cho"}, ids)
}

func TestParse_APIVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"v1", true},
		{"1.2.0", true},
		{"v1.0.0-beta", true},
		{"v2.0.0", false},
		{"latest", false},
	}
	for _, tt := range tests {
		_, err := Parse([]byte("apiVersion: " + tt.version + "\n"))
		if tt.ok && err != nil {
			t.Errorf("apiVersion %s: unexpected error %v", tt.version, err)
		}
		if !tt.ok && !apperr.IsValidation(err) {
			t.Errorf("apiVersion %s: want validation error, got %v", tt.version, err)
		}
	}

	_, err := Parse([]byte("users: []\n"))
	assert.True(t, apperr.IsValidation(err))
}

func TestParse_SchemaRejectsBadShape(t *testing.T) {
	tests := map[string]string{
		"unknown top-level key": "apiVersion: v1\nextra: 1\n",
		"bad op":                "apiVersion: v1\nrules:\n  - {id: R, version: 1, effectiveFrom: '2025-01-01', target: {type: path, id: P}, conditions: [{field: role, op: like, values: [x]}]}\n",
		"bad step type":         "apiVersion: v1\npaths:\n  - {id: P, steps: [{id: s, type: video}]}\n",
		"percent out of range":  "apiVersion: v1\ncourses:\n  - {id: C, criteria: {minScore: 120}}\n",
		"bad date":              "apiVersion: v1\nrules:\n  - {id: R, version: 1, effectiveFrom: 'Jan 1', target: {type: path, id: P}}\n",
		"zero points":           "apiVersion: v1\ngamification:\n  pointsRules: [{id: p, trigger: quiz_pass, points: 0}]\n",
	}
	for name, doc := range tests {
		_, err := Parse([]byte(doc))
		if !apperr.IsValidation(err) {
			t.Errorf("%s: want validation error, got %v", name, err)
		}
	}
}

func TestParse_RejectsDuplicateEnabledPointsRules(t *testing.T) {
	doc := `apiVersion: v1
gamification:
  pointsRules:
    - {id: a, trigger: quiz_pass, points: 10}
    - {id: b, trigger: quiz_pass, points: 20}
    - {id: c, trigger: quiz_pass, points: 30, enabled: false}
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 1)
	assert.Contains(t, ve.Problems[0], `"a" and "b"`)
}

func TestParse_RuleTargetsUnknownContent(t *testing.T) {
	doc := `apiVersion: v1
rules:
  - {id: R, version: 1, effectiveFrom: '2025-01-01', target: {type: course, id: missing}}
`
	_, err := Parse([]byte(doc))
	require.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), `unknown course "missing"`)
}

func TestParse_EffectiveToBeforeFrom(t *testing.T) {
	doc := `apiVersion: v1
courses: [{id: C}]
rules:
  - {id: R, version: 1, effectiveFrom: '2025-02-01', effectiveTo: '2025-01-01', target: {type: course, id: C}}
`
	_, err := Parse([]byte(doc))
	assert.True(t, apperr.IsValidation(err))
}

func TestParse_TwoActiveVersionsIsInvariant(t *testing.T) {
	doc := `apiVersion: v1
courses: [{id: C}]
rules:
  - {id: R, version: 1, effectiveFrom: '2025-01-01', target: {type: course, id: C}}
  - {id: R, version: 2, effectiveFrom: '2025-01-01', target: {type: course, id: C}}
`
	_, err := Parse([]byte(doc))
	assert.True(t, apperr.IsInvariant(err))
}

func TestParse_PathFaults(t *testing.T) {
	cyclic := `apiVersion: v1
paths:
  - id: P
    steps:
      - {id: a, type: course, unlock: {lockedUntil: b}}
      - {id: b, type: course, unlock: {lockedUntil: a}}
`
	_, err := Parse([]byte(cyclic))
	require.True(t, apperr.IsValidation(err))
	assert.True(t, strings.Contains(err.Error(), "cycle"))

	dangling := `apiVersion: v1
paths:
  - id: P
    steps:
      - {id: a, type: course, unlock: {lockedUntil: ghost}}
`
	_, err = Parse([]byte(dangling))
	assert.True(t, apperr.IsInvariant(err))
}

func TestParse_BadgeConfig(t *testing.T) {
	doc := `apiVersion: v1
gamification:
  badges:
    - {id: s, trigger: streak}
    - {id: s2, trigger: points_total, config: {points: 100}}
`
	_, err := Parse([]byte(doc))
	require.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "config.days")
}

func TestParse_DefaultPolicy(t *testing.T) {
	c, err := Parse([]byte("apiVersion: v1\n"))
	require.NoError(t, err)
	assert.Equal(t, gamification.DefaultPolicy(), c.Gamification.Policy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	require.Error(t, err)
	assert.False(t, IsStructural(err))
}
