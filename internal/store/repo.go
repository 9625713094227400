package store

import (
	"context"
	"database/sql"
	"time"
)

// QueryOpts configures append-only log queries.
type QueryOpts struct {
	Limit int   // max results (0 = unlimited)
	After int64 // sequence > After
}

// AssignmentData is the creation payload for an assignment.
type AssignmentData struct {
	ID          string
	UserID      string
	ContentType string
	ContentID   string
	RuleID      string // empty for manual or bulk assignment
	RuleVersion int
	AssignedAt  time.Time
	DueAt       *time.Time
}

// AssignmentRecord is a stored assignment.
type AssignmentRecord struct {
	AssignmentData
	ProgressPercent float64
	LastActivityAt  *time.Time
	CompletedAt     *time.Time
}

// AssignmentRepo persists assignments. Creation is idempotent on
// (UserID, ContentID).
type AssignmentRepo interface {
	// CreateAssignment inserts a new assignment, or returns the existing one
	// for the same user and content with created=false.
	CreateAssignment(ctx context.Context, data AssignmentData) (rec *AssignmentRecord, created bool, err error)

	// GetAssignment returns the user's assignment for content, or nil.
	GetAssignment(ctx context.Context, userID, contentID string) (*AssignmentRecord, error)

	// ListAssignments returns assignments for a user, or for everyone when
	// userID is empty, ordered by user then assignment time.
	ListAssignments(ctx context.Context, userID string) ([]AssignmentRecord, error)

	// UpdateAssignmentProgress records learner progress.
	UpdateAssignmentProgress(ctx context.Context, id string, progress float64, lastActivity time.Time, completedAt *time.Time) error
}

// StepProgressData is one persisted StepProgress row.
type StepProgressData struct {
	StepID       string
	State        string
	Score        float64
	Attendance   float64
	WatchPercent float64
	Attempts     int
	StartedAt    *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// TransitionData is one step state change.
type TransitionData struct {
	StepID  string
	From    string
	To      string
	Trigger string
	At      time.Time
}

// TransitionRecord is a stored transition.
type TransitionRecord struct {
	TransitionData
	AssignmentID string
	Sequence     int64
}

// ProgressRepo persists path progression state.
type ProgressRepo interface {
	// SaveStepProgress upserts the rows for an assignment.
	SaveStepProgress(ctx context.Context, assignmentID string, rows []StepProgressData) error

	// LoadStepProgress returns all rows for an assignment.
	LoadStepProgress(ctx context.Context, assignmentID string) ([]StepProgressData, error)

	// AppendTransitions records transitions in order.
	AppendTransitions(ctx context.Context, assignmentID string, ts []TransitionData) error

	// QueryTransitions returns an assignment's transitions, oldest first.
	QueryTransitions(ctx context.Context, assignmentID string, opts QueryOpts) ([]TransitionRecord, error)
}

// LedgerEntryData is an append-only points ledger row.
type LedgerEntryData struct {
	EntryID        string
	UserID         string
	RuleID         string
	SourceID       string
	Points         int
	IdempotencyKey string // unique; duplicate keys are not inserted
	Day            string // YYYY-MM-DD in the cap's time zone
	CreatedAt      time.Time
}

// LedgerRecord is a stored ledger entry.
type LedgerRecord struct {
	LedgerEntryData
	Sequence int64
}

// LedgerRepo is the points ledger. Entries are never updated or deleted.
type LedgerRepo interface {
	// AppendLedgerEntry inserts an entry unless one with the same
	// idempotency key exists, in which case inserted is false.
	AppendLedgerEntry(ctx context.Context, data LedgerEntryData) (inserted bool, err error)

	// HasLedgerEntry reports whether the user already earned the rule for the source.
	HasLedgerEntry(ctx context.Context, userID, ruleID, sourceID string) (bool, error)

	// DailyPoints sums a user's points for one day.
	DailyPoints(ctx context.Context, userID, day string) (int, error)

	// TotalPoints sums all of a user's points.
	TotalPoints(ctx context.Context, userID string) (int, error)

	// ActivityDays returns the distinct days with entries, ascending.
	ActivityDays(ctx context.Context, userID string) ([]string, error)

	// QueryLedger returns a user's entries, oldest first.
	QueryLedger(ctx context.Context, userID string, opts QueryOpts) ([]LedgerRecord, error)
}

// BadgeAwardData is a badge award row.
type BadgeAwardData struct {
	AwardID   string
	UserID    string
	BadgeID   string
	AwardedAt time.Time
}

// BadgeAwardRecord is a stored badge award.
type BadgeAwardRecord struct {
	BadgeAwardData
	Sequence int64
}

// BadgeRepo stores badge awards, at most one per (user, badge).
type BadgeRepo interface {
	// AwardBadge inserts the award unless the user already holds the badge.
	AwardBadge(ctx context.Context, data BadgeAwardData) (inserted bool, err error)

	// QueryBadgeAwards returns a user's awards, oldest first.
	QueryBadgeAwards(ctx context.Context, userID string) ([]BadgeAwardRecord, error)
}

// ActivityWriter is the set of writes that record one applied activity:
// the new step rows, the transitions that produced them and the
// assignment's progress.
type ActivityWriter interface {
	SaveStepProgress(ctx context.Context, assignmentID string, rows []StepProgressData) error
	AppendTransitions(ctx context.Context, assignmentID string, ts []TransitionData) error
	UpdateAssignmentProgress(ctx context.Context, id string, progress float64, lastActivity time.Time, completedAt *time.Time) error
}

// TxRunner runs fn in one transaction. Its writes are committed together
// when fn returns nil and discarded otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(w ActivityWriter) error) error
}

// repo implements every repository interface over one database.
// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repo struct {
	db  execer
	seq *sequenceCounter
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
