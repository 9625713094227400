package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

func (r *repo) AwardBadge(ctx context.Context, data BadgeAwardData) (bool, error) {
	seq, err := r.seq.Next(ctx, r.db)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(badgeAwardsTable).
		Columns("sequence", "award_id", "user_id", "badge_id", "awarded_at").
		Values(seq, data.AwardID, data.UserID, data.BadgeID, data.AwardedAt.UTC()).
		OnConflict(entsql.ConflictColumns("user_id", "badge_id"), entsql.DoNothing()).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("award badge %s to %s: %w", data.BadgeID, data.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge %s to %s: %w", data.BadgeID, data.UserID, err)
	}
	return n > 0, nil
}

func (r *repo) QueryBadgeAwards(ctx context.Context, userID string) ([]BadgeAwardRecord, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("sequence", "award_id", "user_id", "badge_id", "awarded_at").
		From(entsql.Table(badgeAwardsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("sequence").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query badge awards: %w", err)
	}
	defer rows.Close()

	var out []BadgeAwardRecord
	for rows.Next() {
		var rec BadgeAwardRecord
		if err := rows.Scan(&rec.Sequence, &rec.AwardID, &rec.UserID, &rec.BadgeID, &rec.AwardedAt); err != nil {
			return nil, fmt.Errorf("scan badge award: %w", err)
		}
		rec.AwardedAt = rec.AwardedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
