package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func (r *repo) SaveStepProgress(ctx context.Context, assignmentID string, rows []StepProgressData) error {
	if len(rows) == 0 {
		return nil
	}
	ins := entsql.Dialect(dialect.SQLite).
		Insert(stepProgressTable).
		Columns("assignment_id", "step_id", "state", "score", "attendance", "watch_percent",
			"attempts", "started_at", "completed_at", "updated_at")
	for _, row := range rows {
		ins.Values(assignmentID, row.StepID, row.State, row.Score, row.Attendance, row.WatchPercent,
			row.Attempts, nullTime(row.StartedAt), nullTime(row.CompletedAt), row.UpdatedAt.UTC())
	}
	query, args := ins.
		OnConflict(entsql.ConflictColumns("assignment_id", "step_id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save step progress for %s: %w", assignmentID, err)
	}
	return nil
}

func (r *repo) LoadStepProgress(ctx context.Context, assignmentID string) ([]StepProgressData, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("step_id", "state", "score", "attendance", "watch_percent",
			"attempts", "started_at", "completed_at", "updated_at").
		From(entsql.Table(stepProgressTable)).
		Where(entsql.EQ("assignment_id", assignmentID)).
		OrderBy("id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load step progress for %s: %w", assignmentID, err)
	}
	defer rows.Close()

	var out []StepProgressData
	for rows.Next() {
		var (
			d                  StepProgressData
			started, completed sql.NullTime
		)
		if err := rows.Scan(&d.StepID, &d.State, &d.Score, &d.Attendance, &d.WatchPercent,
			&d.Attempts, &started, &completed, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step progress: %w", err)
		}
		d.StartedAt = fromNullTime(started)
		d.CompletedAt = fromNullTime(completed)
		d.UpdatedAt = d.UpdatedAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repo) AppendTransitions(ctx context.Context, assignmentID string, ts []TransitionData) error {
	if len(ts) == 0 {
		return nil
	}
	first, err := r.seq.NextN(ctx, r.db, len(ts))
	if err != nil {
		return fmt.Errorf("append transitions: %w", err)
	}

	ins := entsql.Dialect(dialect.SQLite).
		Insert(stepTransitionsTable).
		Columns("sequence", "assignment_id", "step_id", "from_state", "to_state", "trigger_name", "occurred_at")
	for i, t := range ts {
		ins.Values(first+int64(i), assignmentID, t.StepID, t.From, t.To, t.Trigger, t.At.UTC())
	}
	query, args := ins.Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append transitions for %s: %w", assignmentID, err)
	}
	return nil
}

func (r *repo) QueryTransitions(ctx context.Context, assignmentID string, opts QueryOpts) ([]TransitionRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("sequence", "step_id", "from_state", "to_state", "trigger_name", "occurred_at").
		From(entsql.Table(stepTransitionsTable)).
		Where(entsql.And(entsql.EQ("assignment_id", assignmentID), entsql.GT("sequence", opts.After))).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions for %s: %w", assignmentID, err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		rec := TransitionRecord{AssignmentID: assignmentID}
		if err := rows.Scan(&rec.Sequence, &rec.StepID, &rec.From, &rec.To, &rec.Trigger, &rec.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.At = rec.At.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
