package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// BadgeAward records a badge granted to a user. A badge is granted once.
type BadgeAward struct {
	ent.Schema
}

func (BadgeAward) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (BadgeAward) Fields() []ent.Field {
	return []ent.Field{
		field.String("award_id").Unique().Immutable(),
		field.String("user_id").NotEmpty().Immutable(),
		field.String("badge_id").NotEmpty().Immutable(),
		field.Time("awarded_at").Immutable(),
	}
}

func (BadgeAward) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "badge_id").Unique(),
	}
}

func (BadgeAward) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "badge_awards"}}
}
