package catalog

import (
	"github.com/arong/lmsengine/internal/condition"
	"github.com/arong/lmsengine/internal/entity"
)

// document mirrors the YAML catalog file.
type document struct {
	APIVersion   string          `yaml:"apiVersion"`
	Users        []entity.User   `yaml:"users"`
	Courses      []courseDoc     `yaml:"courses"`
	Paths        []pathDoc       `yaml:"paths"`
	Rules        []ruleDoc       `yaml:"rules"`
	Gamification gamificationDoc `yaml:"gamification"`
}

type criteriaDoc struct {
	MinScore      *float64 `yaml:"minScore"`
	MinAttendance *float64 `yaml:"minAttendance"`
	WatchPercent  *float64 `yaml:"watchPercent"`
}

type courseDoc struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	DueInDays int         `yaml:"dueInDays"`
	Criteria  criteriaDoc `yaml:"criteria"`
}

type pathDoc struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	DueInDays int       `yaml:"dueInDays"`
	Steps     []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	ID         string      `yaml:"id"`
	Order      int         `yaml:"order"`
	Name       string      `yaml:"name"`
	Type       string      `yaml:"type"`
	ContentID  string      `yaml:"contentId"`
	Mandatory  *bool       `yaml:"mandatory"` // nil = mandatory
	Criteria   criteriaDoc `yaml:"criteria"`
	GroupLabel string      `yaml:"groupLabel"`
	Unlock     unlockDoc   `yaml:"unlock"`
}

type unlockDoc struct {
	LockedUntil    string     `yaml:"lockedUntil"`
	Anytime        bool       `yaml:"anytime"`
	Branch         *branchDoc `yaml:"branch"`
	RemedialStepID string     `yaml:"remedialStepId"`
}

type branchDoc struct {
	ScoreBelow float64 `yaml:"scoreBelow"`
}

type ruleDoc struct {
	ID            string                `yaml:"id"`
	Version       int                   `yaml:"version"`
	Active        *bool                 `yaml:"active"` // nil = active
	EffectiveFrom string                `yaml:"effectiveFrom"`
	EffectiveTo   *string               `yaml:"effectiveTo"`
	Conditions    []condition.Condition `yaml:"conditions"`
	Target        targetDoc             `yaml:"target"`
	Triggers      []string              `yaml:"triggers"`
}

type targetDoc struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

type gamificationDoc struct {
	Policy      *policyDoc      `yaml:"policy"`
	PointsRules []pointsRuleDoc `yaml:"pointsRules"`
	Badges      []badgeDoc      `yaml:"badges"`
}

type policyDoc struct {
	DailyCap           int  `yaml:"dailyCap"`
	NoDuplicateRewatch bool `yaml:"noDuplicateRewatch"`
}

type pointsRuleDoc struct {
	ID      string `yaml:"id"`
	Trigger string `yaml:"trigger"`
	Points  int    `yaml:"points"`
	Enabled *bool  `yaml:"enabled"` // nil = enabled
}

type badgeDoc struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Trigger    string         `yaml:"trigger"`
	Config     badgeConfigDoc `yaml:"config"`
	Visibility string         `yaml:"visibility"`
	Enabled    *bool          `yaml:"enabled"` // nil = enabled
}

type badgeConfigDoc struct {
	CourseID string `yaml:"courseId"`
	PathID   string `yaml:"pathId"`
	Days     int    `yaml:"days"`
	Points   int    `yaml:"points"`
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
