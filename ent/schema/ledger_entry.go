package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LedgerEntry is one points award. The ledger is append-only; a user's
// balance is the sum of their entries.
type LedgerEntry struct {
	ent.Schema
}

func (LedgerEntry) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (LedgerEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("entry_id").Unique().Immutable(),
		field.String("user_id").NotEmpty().Immutable(),
		field.String("rule_id").NotEmpty().Immutable(),
		field.String("source_id").NotEmpty().Immutable(),
		field.Int("points").Immutable(),
		field.String("idempotency_key").
			Unique().
			Immutable().
			Comment("user|rule|source; a repeated key is never inserted"),
		field.String("day").
			Immutable().
			Comment("YYYY-MM-DD in the daily cap's time zone"),
		field.Time("created_at").Immutable(),
	}
}

func (LedgerEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "day"),
		index.Fields("user_id", "rule_id", "source_id"),
	}
}

func (LedgerEntry) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "points_ledger"}}
}
