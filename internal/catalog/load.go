package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/gamification"
	"github.com/arong/lmsengine/internal/pathgraph"
	"github.com/arong/lmsengine/internal/rules"
)

// SupportedMajor is the catalog apiVersion major this build reads.
const SupportedMajor = "v1"

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes, validates and builds a catalog. Structural faults come
// back as *apperr.ValidationError or *apperr.InvariantViolation.
func Parse(data []byte) (*Catalog, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := checkAPIVersion(tree); err != nil {
		return nil, err
	}
	if err := validateSchema(tree); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(doc)
}

func checkAPIVersion(tree any) error {
	m, _ := tree.(map[string]any)
	v, _ := m["apiVersion"].(string)
	if v == "" {
		return apperr.NewValidation("catalog", []string{"apiVersion is required"})
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return apperr.NewValidation("catalog", []string{fmt.Sprintf("apiVersion %q is not a semantic version", v)})
	}
	if semver.Major(v) != SupportedMajor {
		return apperr.NewValidation("catalog", []string{
			fmt.Sprintf("apiVersion %s is not supported (want %s.x)", v, SupportedMajor),
		})
	}
	return nil
}

func build(doc document) (*Catalog, error) {
	c := &Catalog{
		APIVersion: doc.APIVersion,
		Rules:      rules.NewRuleSet(),
		users:      make(map[string]entity.User, len(doc.Users)),
		courses:    make(map[string]Course, len(doc.Courses)),
		content: map[entity.ContentType]map[string]Content{
			entity.ContentCourse: {},
			entity.ContentPath:   {},
		},
	}
	var errs []string

	for _, u := range doc.Users {
		if _, dup := c.users[u.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate user %q", u.ID))
			continue
		}
		if u.Attributes == nil {
			u.Attributes = map[string]string{}
		}
		c.users[u.ID] = u
	}

	for _, cd := range doc.Courses {
		if _, dup := c.courses[cd.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate course %q", cd.ID))
			continue
		}
		co := Course{ID: cd.ID, Name: cd.Name, DueInDays: cd.DueInDays, Criteria: buildCriteria(cd.Criteria)}
		c.courses[co.ID] = co
		c.content[entity.ContentCourse][co.ID] = Content{
			Type:      entity.ContentCourse,
			ID:        co.ID,
			Name:      co.Name,
			DueInDays: co.DueInDays,
			Path:      pathgraph.SingleStep(co.ID, co.Name, co.Criteria),
		}
	}

	for _, pd := range doc.Paths {
		if _, dup := c.content[entity.ContentPath][pd.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate path %q", pd.ID))
			continue
		}
		p := buildPath(pd)
		if err := pathgraph.Validate(p); err != nil {
			if apperr.IsInvariant(err) {
				return nil, err
			}
			errs = append(errs, err.Error())
			continue
		}
		c.content[entity.ContentPath][p.ID] = Content{
			Type:      entity.ContentPath,
			ID:        p.ID,
			Name:      p.Name,
			DueInDays: pd.DueInDays,
			Path:      p,
		}
	}

	ruleList, ruleErrs := buildRules(doc.Rules)
	errs = append(errs, ruleErrs...)
	for _, r := range ruleList {
		if _, ok := c.content[r.Target.Type][r.Target.ID]; !ok {
			errs = append(errs, fmt.Sprintf("rule %q v%d targets unknown %s %q", r.ID, r.Version, r.Target.Type, r.Target.ID))
		}
	}

	gcfg, gErrs := buildGamification(doc.Gamification)
	errs = append(errs, gErrs...)
	c.Gamification = gcfg

	if err := apperr.NewValidation("catalog", errs); err != nil {
		return nil, err
	}
	if err := c.Rules.Load(ruleList); err != nil {
		return nil, err
	}
	return c, nil
}

func buildCriteria(d criteriaDoc) pathgraph.Criteria {
	return pathgraph.Criteria{
		MinScore:      pathgraph.ThresholdFrom(d.MinScore),
		MinAttendance: pathgraph.ThresholdFrom(d.MinAttendance),
		WatchPercent:  pathgraph.ThresholdFrom(d.WatchPercent),
	}
}

func buildPath(d pathDoc) *pathgraph.Path {
	p := &pathgraph.Path{ID: d.ID, Name: d.Name, Steps: make([]pathgraph.Step, 0, len(d.Steps))}
	for i, sd := range d.Steps {
		order := sd.Order
		if order == 0 {
			order = i + 1
		}
		s := pathgraph.Step{
			ID:         sd.ID,
			Order:      order,
			Name:       sd.Name,
			Type:       pathgraph.StepType(sd.Type),
			ContentID:  sd.ContentID,
			Mandatory:  boolOr(sd.Mandatory, true),
			Criteria:   buildCriteria(sd.Criteria),
			GroupLabel: sd.GroupLabel,
			Unlock: pathgraph.UnlockRule{
				LockedUntil:    sd.Unlock.LockedUntil,
				Anytime:        sd.Unlock.Anytime,
				RemedialStepID: sd.Unlock.RemedialStepID,
			},
		}
		if s.ContentID == "" {
			s.ContentID = s.ID
		}
		if sd.Unlock.Branch != nil {
			s.Unlock.Branch = &pathgraph.BranchCondition{ScoreBelow: sd.Unlock.Branch.ScoreBelow}
		}
		p.Steps = append(p.Steps, s)
	}
	return p
}

func buildRules(docs []ruleDoc) ([]rules.Rule, []string) {
	var (
		out  []rules.Rule
		errs []string
	)
	for _, d := range docs {
		from, err := time.Parse(time.DateOnly, d.EffectiveFrom)
		if err != nil {
			errs = append(errs, fmt.Sprintf("rule %q v%d: effectiveFrom: %v", d.ID, d.Version, err))
			continue
		}
		r := rules.Rule{
			ID:            d.ID,
			Version:       d.Version,
			Active:        boolOr(d.Active, true),
			EffectiveFrom: from,
			Conditions:    d.Conditions,
			Target:        rules.Target{Type: entity.ContentType(d.Target.Type), ID: d.Target.ID},
		}
		if d.EffectiveTo != nil {
			to, err := time.Parse(time.DateOnly, *d.EffectiveTo)
			if err != nil {
				errs = append(errs, fmt.Sprintf("rule %q v%d: effectiveTo: %v", d.ID, d.Version, err))
				continue
			}
			r.EffectiveTo = &to
		}
		for _, t := range d.Triggers {
			r.Triggers = append(r.Triggers, entity.UserEventType(t))
		}
		out = append(out, r)
	}
	return out, errs
}

func buildGamification(d gamificationDoc) (gamification.Config, []string) {
	cfg := gamification.Config{Policy: gamification.DefaultPolicy()}
	if d.Policy != nil {
		cfg.Policy = gamification.Policy{DailyCap: d.Policy.DailyCap, NoDuplicateRewatch: d.Policy.NoDuplicateRewatch}
	}

	var errs []string
	ruleIDs := map[string]bool{}
	enabledByTrigger := map[gamification.Trigger]string{}
	for _, rd := range d.PointsRules {
		r := gamification.PointsRule{
			ID:      rd.ID,
			Trigger: gamification.Trigger(rd.Trigger),
			Points:  rd.Points,
			Enabled: boolOr(rd.Enabled, true),
		}
		if ruleIDs[r.ID] {
			errs = append(errs, fmt.Sprintf("duplicate points rule %q", r.ID))
			continue
		}
		ruleIDs[r.ID] = true
		if !r.Trigger.Valid() {
			errs = append(errs, fmt.Sprintf("points rule %q: unknown trigger %q", r.ID, r.Trigger))
			continue
		}
		if r.Enabled {
			if other, ok := enabledByTrigger[r.Trigger]; ok {
				errs = append(errs, fmt.Sprintf("points rules %q and %q are both enabled for %s", other, r.ID, r.Trigger))
				continue
			}
			enabledByTrigger[r.Trigger] = r.ID
		}
		cfg.Rules = append(cfg.Rules, r)
	}

	badgeIDs := map[string]bool{}
	for _, bd := range d.Badges {
		b := gamification.Badge{
			ID:          bd.ID,
			Name:        bd.Name,
			TriggerType: gamification.BadgeTrigger(bd.Trigger),
			Config: gamification.BadgeConfig{
				CourseID: bd.Config.CourseID,
				PathID:   bd.Config.PathID,
				Days:     bd.Config.Days,
				Points:   bd.Config.Points,
			},
			Visibility: gamification.Visibility(bd.Visibility),
			Enabled:    boolOr(bd.Enabled, true),
		}
		if b.Visibility == "" {
			b.Visibility = gamification.VisibilityPublic
		}
		if b.Name == "" {
			b.Name = b.ID
		}
		if badgeIDs[b.ID] {
			errs = append(errs, fmt.Sprintf("duplicate badge %q", b.ID))
			continue
		}
		badgeIDs[b.ID] = true
		if err := validateBadge(b); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		cfg.Badges = append(cfg.Badges, b)
	}
	return cfg, errs
}

func validateBadge(b gamification.Badge) error {
	if !b.TriggerType.Valid() {
		return fmt.Errorf("badge %q: unknown trigger %q", b.ID, b.TriggerType)
	}
	switch b.TriggerType {
	case gamification.BadgeStreak:
		if b.Config.Days < 1 {
			return fmt.Errorf("badge %q: streak needs config.days >= 1", b.ID)
		}
	case gamification.BadgePointsTotal:
		if b.Config.Points < 1 {
			return fmt.Errorf("badge %q: points_total needs config.points >= 1", b.ID)
		}
	}
	return nil
}

// IsStructural reports whether err is a catalog authoring fault rather than
// an I/O or decode failure.
func IsStructural(err error) bool {
	return apperr.IsValidation(err) || apperr.IsInvariant(err)
}
