package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arong/lmsengine/internal/apperr"
	"github.com/arong/lmsengine/internal/condition"
	"github.com/arong/lmsengine/internal/entity"
)

// DefaultWorkers is the batch evaluation parallelism when none is configured.
const DefaultWorkers = 4

// AssignmentIntent asks the assignment collaborator to assign content to a
// user. Creation on the other side is idempotent on (UserID, ContentID).
type AssignmentIntent struct {
	UserID      string
	ContentType entity.ContentType
	ContentID   string
	RuleID      string
	RuleVersion int
}

// RuleSource supplies the rules in force on a given day, sorted by id.
type RuleSource interface {
	ActiveOn(day time.Time) []Rule
}

// Engine evaluates auto-assignment rules against user snapshots. It holds no
// state of its own.
type Engine struct {
	rules   RuleSource
	log     *zap.Logger
	workers int
}

// NewEngine creates a rule engine. workers <= 0 selects DefaultWorkers.
func NewEngine(rules RuleSource, log *zap.Logger, workers int) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{rules: rules, log: log.Named("rules"), workers: workers}
}

// OnUserEvent evaluates the rules in force today against a user and returns
// one intent per matched content, in rule-id order. When two rules target
// the same content, the lowest rule id wins. The result depends only on the
// inputs, so replaying an event yields the same intents.
func (e *Engine) OnUserEvent(user entity.User, evt entity.UserEventType, today time.Time) []AssignmentIntent {
	seen := make(map[Target]bool)
	var intents []AssignmentIntent

	for _, r := range e.rules.ActiveOn(today) {
		if !r.FiresOn(evt) {
			continue
		}
		res := condition.Evaluate(r.Conditions, user.Attributes)
		for _, sk := range res.Skips {
			e.logSkip(r, user, sk)
		}
		if !res.Matched {
			continue
		}
		if seen[r.Target] {
			e.log.Debug("duplicate target skipped",
				zap.String("rule", r.ID), zap.String("user", user.ID), zap.String("content", r.Target.ID))
			continue
		}
		seen[r.Target] = true
		intents = append(intents, AssignmentIntent{
			UserID:      user.ID,
			ContentType: r.Target.Type,
			ContentID:   r.Target.ID,
			RuleID:      r.ID,
			RuleVersion: r.Version,
		})
	}
	return intents
}

func (e *Engine) logSkip(r Rule, user entity.User, sk condition.Skip) {
	fields := []zap.Field{
		zap.String("rule", r.ID),
		zap.Int("version", r.Version),
		zap.String("user", user.ID),
		zap.String("condition", sk.Condition.String()),
		zap.String("reason", string(sk.Reason)),
	}
	switch sk.Reason {
	case apperr.SkipUnknownField, apperr.SkipUnknownOp:
		e.log.Warn("malformed condition evaluated as false", fields...)
	default:
		e.log.Debug("condition skipped", fields...)
	}
}

// EvaluateBatch runs OnUserEvent for many users in parallel. Users are
// independent, so ordering across users does not matter. The returned map
// only contains users with at least one intent.
func (e *Engine) EvaluateBatch(ctx context.Context, users []entity.User, evt entity.UserEventType, today time.Time) (map[string][]AssignmentIntent, error) {
	results := make([][]AssignmentIntent, len(users))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, u := range users {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.OnUserEvent(u, evt, today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}

	out := make(map[string][]AssignmentIntent)
	for i, u := range users {
		if len(results[i]) > 0 {
			out[u.ID] = results[i]
		}
	}
	return out, nil
}
