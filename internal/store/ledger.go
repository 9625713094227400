package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func (r *repo) AppendLedgerEntry(ctx context.Context, data LedgerEntryData) (bool, error) {
	seq, err := r.seq.Next(ctx, r.db)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(pointsLedgerTable).
		Columns("sequence", "entry_id", "user_id", "rule_id", "source_id", "points", "idempotency_key", "day", "created_at").
		Values(seq, data.EntryID, data.UserID, data.RuleID, data.SourceID, data.Points, data.IdempotencyKey, data.Day, data.CreatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("idempotency_key"), entsql.DoNothing()).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("append ledger entry %s: %w", data.IdempotencyKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append ledger entry %s: %w", data.IdempotencyKey, err)
	}
	return n > 0, nil
}

func (r *repo) HasLedgerEntry(ctx context.Context, userID, ruleID, sourceID string) (bool, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id").
		From(entsql.Table(pointsLedgerTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("rule_id", ruleID),
			entsql.EQ("source_id", sourceID),
		)).
		Limit(1).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("has ledger entry: %w", err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

func (r *repo) DailyPoints(ctx context.Context, userID, day string) (int, error) {
	return r.sumPoints(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("day", day)))
}

func (r *repo) TotalPoints(ctx context.Context, userID string) (int, error) {
	return r.sumPoints(ctx, entsql.EQ("user_id", userID))
}

func (r *repo) sumPoints(ctx context.Context, where *entsql.Predicate) (int, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("COALESCE(SUM(points), 0)").
		From(entsql.Table(pointsLedgerTable)).
		Where(where).
		Query()

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

func (r *repo) ActivityDays(ctx context.Context, userID string) ([]string, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("day").
		Distinct().
		From(entsql.Table(pointsLedgerTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("day").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *repo) QueryLedger(ctx context.Context, userID string, opts QueryOpts) ([]LedgerRecord, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("sequence", "entry_id", "user_id", "rule_id", "source_id", "points", "idempotency_key", "day", "created_at").
		From(entsql.Table(pointsLedgerTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GT("sequence", opts.After))).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerRecord
	for rows.Next() {
		var rec LedgerRecord
		if err := rows.Scan(&rec.Sequence, &rec.EntryID, &rec.UserID, &rec.RuleID, &rec.SourceID,
			&rec.Points, &rec.IdempotencyKey, &rec.Day, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
