package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var assignmentColumns = []string{
	"id", "user_id", "content_type", "content_id", "rule_id", "rule_version",
	"assigned_at", "due_at", "progress_percent", "last_activity_at", "completed_at",
}

func (r *repo) CreateAssignment(ctx context.Context, data AssignmentData) (*AssignmentRecord, bool, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(assignmentsTable).
		Columns("id", "user_id", "content_type", "content_id", "rule_id", "rule_version", "assigned_at", "due_at").
		Values(data.ID, data.UserID, data.ContentType, data.ContentID, data.RuleID, data.RuleVersion,
			data.AssignedAt.UTC(), nullTime(data.DueAt)).
		OnConflict(entsql.ConflictColumns("user_id", "content_id"), entsql.DoNothing()).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("create assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("create assignment: %w", err)
	}

	rec, err := r.GetAssignment(ctx, data.UserID, data.ContentID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, fmt.Errorf("create assignment: row for %s/%s missing after insert", data.UserID, data.ContentID)
	}
	return rec, n > 0, nil
}

func (r *repo) GetAssignment(ctx context.Context, userID, contentID string) (*AssignmentRecord, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("content_id", contentID))).
		Query()

	rec, err := scanAssignment(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return rec, nil
}

func (r *repo) ListAssignments(ctx context.Context, userID string) ([]AssignmentRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		OrderBy("user_id", "assigned_at", "content_id")
	if userID != "" {
		sel.Where(entsql.EQ("user_id", userID))
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []AssignmentRecord
	for rows.Next() {
		rec, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("list assignments: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *repo) UpdateAssignmentProgress(ctx context.Context, id string, progress float64, lastActivity time.Time, completedAt *time.Time) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Update(assignmentsTable).
		Set("progress_percent", progress).
		Set("last_activity_at", lastActivity.UTC()).
		Set("completed_at", nullTime(completedAt)).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update assignment %s: not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(s rowScanner) (*AssignmentRecord, error) {
	var (
		rec                    AssignmentRecord
		due, last, completedAt sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.ContentType, &rec.ContentID, &rec.RuleID, &rec.RuleVersion,
		&rec.AssignedAt, &due, &rec.ProgressPercent, &last, &completedAt)
	if err != nil {
		return nil, err
	}
	rec.AssignedAt = rec.AssignedAt.UTC()
	rec.DueAt = fromNullTime(due)
	rec.LastActivityAt = fromNullTime(last)
	rec.CompletedAt = fromNullTime(completedAt)
	return &rec, nil
}
