// Package engine wires the assignment, progression, status and
// gamification components to persistent storage. Inbound collaborator
// events enter here; outbound records are persisted and returned.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arong/lmsengine/internal/catalog"
	"github.com/arong/lmsengine/internal/entity"
	"github.com/arong/lmsengine/internal/gamification"
	"github.com/arong/lmsengine/internal/keylock"
	"github.com/arong/lmsengine/internal/progression"
	"github.com/arong/lmsengine/internal/rules"
	"github.com/arong/lmsengine/internal/status"
	"github.com/arong/lmsengine/internal/store"
)

// ErrNotAssigned is returned for activity against content the user does
// not have assigned.
var ErrNotAssigned = errors.New("content not assigned")

// ErrUnknownContent is returned when an assignment references content
// missing from the catalog.
var ErrUnknownContent = errors.New("unknown content")

// Deps are the collaborators the engine reads from and writes to.
type Deps struct {
	Users        catalog.UserRepo
	Content      catalog.PathRepo
	Rules        rules.RuleSource
	Gamification gamification.Config

	Assignments store.AssignmentRepo
	Progress    store.ProgressRepo
	Ledger      store.LedgerRepo
	Badges      store.BadgeRepo

	// Tx commits the writes of one activity together. When nil they are
	// issued directly against Progress and Assignments.
	Tx store.TxRunner
}

// Options tune the engine.
type Options struct {
	Location *time.Location // day boundary for rules and the daily cap; nil = UTC
	Status   status.Config
	Workers  int
	Logger   *zap.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	users   catalog.UserRepo
	content catalog.PathRepo
	rules   *rules.Engine
	awarder *gamification.Awarder

	assignments store.AssignmentRepo
	progress    store.ProgressRepo
	tx          store.TxRunner

	loc       *time.Location
	statusCfg status.Config
	log       *zap.Logger
	locks     *keylock.Map
	newID     func() string
}

// New creates an Engine.
func New(d Deps, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	statusCfg := opts.Status
	if statusCfg.Inactivity == 0 {
		statusCfg = status.DefaultConfig()
	}

	gcfg := d.Gamification
	gcfg.Location = loc

	tx := d.Tx
	if tx == nil {
		tx = directWriter{ProgressRepo: d.Progress, AssignmentRepo: d.Assignments}
	}

	return &Engine{
		users:       d.Users,
		content:     d.Content,
		rules:       rules.NewEngine(d.Rules, log, opts.Workers),
		awarder:     gamification.NewAwarder(gcfg, d.Ledger, d.Badges, log.Named("gamification")),
		assignments: d.Assignments,
		progress:    d.Progress,
		tx:          tx,
		loc:         loc,
		statusCfg:   statusCfg,
		log:         log.Named("engine"),
		locks:       keylock.New(),
		newID:       func() string { return uuid.New().String() },
	}
}

// Open builds an Engine over a loaded catalog and an open store.
func Open(c *catalog.Catalog, s *store.Store, opts Options) *Engine {
	return New(Deps{
		Users:        c,
		Content:      c,
		Rules:        c.Rules,
		Gamification: c.Gamification,
		Assignments:  s.AssignmentRepo(),
		Progress:     s.ProgressRepo(),
		Ledger:       s.LedgerRepo(),
		Badges:       s.BadgeRepo(),
		Tx:           s,
	}, opts)
}

// Awarder exposes the gamification awarder for ledger and badge queries.
func (e *Engine) Awarder() *gamification.Awarder {
	return e.awarder
}

// Assigned is an intent together with the assignment it resolved to.
type Assigned struct {
	Intent       rules.AssignmentIntent
	AssignmentID string
	Created      bool // false when the user already had the content
}

// OnUserEvent evaluates auto-assignment rules for a user and persists the
// resulting assignments. Replaying the same event creates nothing new.
func (e *Engine) OnUserEvent(ctx context.Context, user entity.User, evt entity.UserEventType, now time.Time) ([]Assigned, error) {
	intents := e.rules.OnUserEvent(user, evt, now.In(e.loc))
	return e.persistIntents(ctx, intents, now)
}

// OnUserEvents evaluates rules for many users in parallel, then persists
// the assignments in user-id order.
func (e *Engine) OnUserEvents(ctx context.Context, users []entity.User, evt entity.UserEventType, now time.Time) ([]Assigned, error) {
	byUser, err := e.rules.EvaluateBatch(ctx, users, evt, now.In(e.loc))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Assigned
	for _, id := range ids {
		assigned, err := e.persistIntents(ctx, byUser[id], now)
		if err != nil {
			return out, err
		}
		out = append(out, assigned...)
	}
	return out, nil
}

// Assign creates a manual assignment outside of any rule.
func (e *Engine) Assign(ctx context.Context, userID string, t entity.ContentType, contentID string, now time.Time) (Assigned, error) {
	if _, ok := e.users.User(userID); !ok {
		return Assigned{}, fmt.Errorf("assign: unknown user %q", userID)
	}
	out, err := e.persistIntents(ctx, []rules.AssignmentIntent{{
		UserID:      userID,
		ContentType: t,
		ContentID:   contentID,
	}}, now)
	if err != nil {
		return Assigned{}, err
	}
	return out[0], nil
}

func (e *Engine) persistIntents(ctx context.Context, intents []rules.AssignmentIntent, now time.Time) ([]Assigned, error) {
	out := make([]Assigned, 0, len(intents))
	for _, in := range intents {
		content, ok := e.content.Content(in.ContentType, in.ContentID)
		if !ok {
			return out, fmt.Errorf("assign %s %q: %w", in.ContentType, in.ContentID, ErrUnknownContent)
		}

		data := store.AssignmentData{
			ID:          e.newID(),
			UserID:      in.UserID,
			ContentType: string(in.ContentType),
			ContentID:   in.ContentID,
			RuleID:      in.RuleID,
			RuleVersion: in.RuleVersion,
			AssignedAt:  now.UTC(),
		}
		if content.DueInDays > 0 {
			due := now.UTC().AddDate(0, 0, content.DueInDays)
			data.DueAt = &due
		}

		rec, created, err := e.assignments.CreateAssignment(ctx, data)
		if err != nil {
			e.log.Error("create assignment failed", zap.String("user", in.UserID), zap.String("content", in.ContentID), zap.Error(err))
			return out, err
		}
		if created {
			inst := progression.NewInstance(content.Path)
			if err := e.progress.SaveStepProgress(ctx, rec.ID, toRows(inst.Snapshot(), now)); err != nil {
				return out, fmt.Errorf("seed progress for %s: %w", rec.ID, err)
			}
			e.log.Info("assignment created",
				zap.String("assignment", rec.ID),
				zap.String("user", in.UserID),
				zap.String("content", in.ContentID),
				zap.String("rule", in.RuleID))
		}
		out = append(out, Assigned{Intent: in, AssignmentID: rec.ID, Created: created})
	}
	return out, nil
}
