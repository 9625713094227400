package gamification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/keylock"
	"github.com/arong/lmsengine/internal/store"
)

// Config is the catalog-provided gamification setup.
type Config struct {
	Rules    []PointsRule
	Badges   []Badge
	Policy   Policy
	Location *time.Location // day boundary for the daily cap; nil = UTC
}

// Outcome is the result of one completion event.
type Outcome struct {
	Entry   *LedgerEntry      // nil when no points were awarded
	Skip    apperr.SkipReason // why Entry is nil
	Clamped bool              // Entry.Points was reduced to the cap headroom
	Badges  []BadgeAward      // badges newly awarded by this event
}

// Awarder applies points rules and badge triggers to completion events.
type Awarder struct {
	rules  map[Trigger]PointsRule
	badges []Badge
	policy Policy
	loc    *time.Location

	ledger store.LedgerRepo
	awards store.BadgeRepo
	log    *zap.Logger

	locks *keylock.Map
	newID func() string
}

// NewAwarder creates an Awarder. Rules are keyed by trigger; the catalog
// rejects two enabled rules for one trigger, and an enabled rule wins over
// a disabled one here.
func NewAwarder(cfg Config, ledger store.LedgerRepo, awards store.BadgeRepo, log *zap.Logger) *Awarder {
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	rules := make(map[Trigger]PointsRule, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if existing, ok := rules[r.Trigger]; ok && existing.Enabled && !r.Enabled {
			continue
		}
		rules[r.Trigger] = r
	}
	return &Awarder{
		rules:  rules,
		badges: cfg.Badges,
		policy: cfg.Policy,
		loc:    loc,
		ledger: ledger,
		awards: awards,
		log:    log,
		locks:  keylock.New(),
		newID:  func() string { return uuid.New().String() },
	}
}

// Policy returns the active points policy.
func (a *Awarder) Policy() Policy {
	return a.policy
}

// OnCompletionEvent awards points for ev, then evaluates badges.
// Events for the same user are serialized so the daily cap holds.
func (a *Awarder) OnCompletionEvent(ctx context.Context, ev CompletionEvent) (Outcome, error) {
	unlock := a.locks.Lock(ev.UserID)
	defer unlock()

	out, err := a.applyPoints(ctx, ev)
	if err != nil {
		return out, err
	}
	if out.Skip != "" {
		a.log.Debug("points skipped",
			zap.String("user", ev.UserID),
			zap.String("trigger", string(ev.Trigger)),
			zap.String("source", ev.SourceID),
			zap.String("reason", string(out.Skip)))
	}

	badges, err := a.evaluateBadges(ctx, ev)
	if err != nil {
		return out, err
	}
	out.Badges = badges
	return out, nil
}

func (a *Awarder) applyPoints(ctx context.Context, ev CompletionEvent) (Outcome, error) {
	rule, ok := a.rules[ev.Trigger]
	if !ok {
		return Outcome{Skip: apperr.SkipNoRule}, nil
	}
	if !rule.Enabled {
		return Outcome{Skip: apperr.SkipRuleDisabled}, nil
	}

	if a.policy.NoDuplicateRewatch {
		seen, err := a.ledger.HasLedgerEntry(ctx, ev.UserID, rule.ID, ev.SourceID)
		if err != nil {
			return Outcome{}, fmt.Errorf("check rewatch: %w", err)
		}
		if seen {
			return Outcome{Skip: apperr.SkipDuplicateRewatch}, nil
		}
	}

	day := DayKey(ev.At, a.loc)
	points := rule.Points
	clamped := false
	if a.policy.DailyCap > 0 {
		used, err := a.ledger.DailyPoints(ctx, ev.UserID, day)
		if err != nil {
			return Outcome{}, fmt.Errorf("daily points: %w", err)
		}
		headroom := a.policy.DailyCap - used
		if headroom <= 0 {
			return Outcome{Skip: apperr.SkipCapExhausted}, nil
		}
		if points > headroom {
			points = headroom
			clamped = true
		}
	}

	entry := LedgerEntry{
		ID:        a.newID(),
		UserID:    ev.UserID,
		RuleID:    rule.ID,
		SourceID:  ev.SourceID,
		Points:    points,
		CreatedAt: ev.At.UTC(),
	}
	inserted, err := a.ledger.AppendLedgerEntry(ctx, store.LedgerEntryData{
		EntryID:        entry.ID,
		UserID:         entry.UserID,
		RuleID:         entry.RuleID,
		SourceID:       entry.SourceID,
		Points:         entry.Points,
		IdempotencyKey: a.idempotencyKey(ev, rule),
		Day:            day,
		CreatedAt:      entry.CreatedAt,
	})
	if err != nil {
		a.log.Error("append ledger entry failed", zap.String("user", ev.UserID), zap.Error(err))
		return Outcome{}, fmt.Errorf("append ledger entry: %w", err)
	}
	if !inserted {
		return Outcome{Skip: apperr.SkipDuplicateRewatch}, nil
	}
	return Outcome{Entry: &entry, Clamped: clamped}, nil
}

// idempotencyKey is unique per (user, rule, source) under rewatch
// de-duplication, and per event otherwise.
func (a *Awarder) idempotencyKey(ev CompletionEvent, rule PointsRule) string {
	key := ev.UserID + "|" + rule.ID + "|" + ev.SourceID
	if !a.policy.NoDuplicateRewatch {
		key += "|" + strconv.FormatInt(ev.At.UnixNano(), 10)
	}
	return key
}

func (a *Awarder) evaluateBadges(ctx context.Context, ev CompletionEvent) ([]BadgeAward, error) {
	var awarded []BadgeAward
	for _, b := range a.badges {
		if !b.Enabled || !triggerMatches(b, ev) {
			continue
		}
		ok, err := a.qualifies(ctx, b, ev)
		if err != nil {
			return awarded, fmt.Errorf("badge %s: %w", b.ID, err)
		}
		if !ok {
			continue
		}

		award := BadgeAward{ID: a.newID(), UserID: ev.UserID, BadgeID: b.ID, AwardedAt: ev.At.UTC()}
		inserted, err := a.awards.AwardBadge(ctx, store.BadgeAwardData{
			AwardID:   award.ID,
			UserID:    award.UserID,
			BadgeID:   award.BadgeID,
			AwardedAt: award.AwardedAt,
		})
		if err != nil {
			a.log.Error("award badge failed", zap.String("user", ev.UserID), zap.String("badge", b.ID), zap.Error(err))
			return awarded, fmt.Errorf("award badge %s: %w", b.ID, err)
		}
		if !inserted {
			a.log.Debug("badge skipped",
				zap.String("user", ev.UserID),
				zap.String("badge", b.ID),
				zap.String("reason", string(apperr.SkipBadgeAlreadyAwarded)))
			continue
		}
		a.log.Info("badge awarded", zap.String("user", ev.UserID), zap.String("badge", b.ID))
		awarded = append(awarded, award)
	}
	return awarded, nil
}

// triggerMatches reports whether ev is the kind of event b listens to.
func triggerMatches(b Badge, ev CompletionEvent) bool {
	switch b.TriggerType {
	case BadgeCourseCompletion:
		return ev.Trigger == TriggerCourseComplete &&
			(b.Config.CourseID == "" || b.Config.CourseID == ev.SourceID)
	case BadgePathCompletion:
		return ev.Trigger == TriggerPathComplete &&
			(b.Config.PathID == "" || b.Config.PathID == ev.SourceID)
	case BadgeOnTimeCompletion:
		return ev.OnTime && (ev.Trigger == TriggerCourseComplete || ev.Trigger == TriggerPathComplete)
	case BadgeStreak, BadgePointsTotal:
		return true
	default:
		return false
	}
}

// qualifies checks b's config against the user's cumulative state.
func (a *Awarder) qualifies(ctx context.Context, b Badge, ev CompletionEvent) (bool, error) {
	switch b.TriggerType {
	case BadgeStreak:
		days, err := a.ledger.ActivityDays(ctx, ev.UserID)
		if err != nil {
			return false, err
		}
		return StreakLength(days, DayKey(ev.At, a.loc)) >= b.Config.Days, nil
	case BadgePointsTotal:
		total, err := a.ledger.TotalPoints(ctx, ev.UserID)
		if err != nil {
			return false, err
		}
		return total >= b.Config.Points, nil
	default:
		return true, nil
	}
}

// Balance returns the user's point total, summed from the ledger.
func (a *Awarder) Balance(ctx context.Context, userID string) (int, error) {
	return a.ledger.TotalPoints(ctx, userID)
}

// Entries returns the user's ledger, oldest first.
func (a *Awarder) Entries(ctx context.Context, userID string) ([]LedgerEntry, error) {
	recs, err := a.ledger.QueryLedger(ctx, userID, store.QueryOpts{})
	if err != nil {
		return nil, err
	}
	out := make([]LedgerEntry, len(recs))
	for i, r := range recs {
		out[i] = LedgerEntry{
			ID:        r.EntryID,
			UserID:    r.UserID,
			RuleID:    r.RuleID,
			SourceID:  r.SourceID,
			Points:    r.Points,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

// Awards returns the user's badge awards, oldest first.
func (a *Awarder) Awards(ctx context.Context, userID string) ([]BadgeAward, error) {
	recs, err := a.awards.QueryBadgeAwards(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BadgeAward, len(recs))
	for i, r := range recs {
		out[i] = BadgeAward{ID: r.AwardID, UserID: r.UserID, BadgeID: r.BadgeID, AwardedAt: r.AwardedAt}
	}
	return out, nil
}

// Streak returns the user's run of consecutive active days ending at now.
func (a *Awarder) Streak(ctx context.Context, userID string, now time.Time) (int, error) {
	days, err := a.ledger.ActivityDays(ctx, userID)
	if err != nil {
		return 0, err
	}
	return StreakLength(days, DayKey(now, a.loc)), nil
}
