package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Assignment binds one piece of content to one user. Its status is derived
// on read and is not stored.
type Assignment struct {
	ent.Schema
}

func (Assignment) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable(),
		field.String("user_id").NotEmpty().Immutable(),
		field.String("content_type").
			NotEmpty().
			Immutable().
			Comment("course or path"),
		field.String("content_id").NotEmpty().Immutable(),
		field.String("rule_id").
			Default("").
			Immutable().
			Comment("Empty for manual assignment"),
		field.Int("rule_version").Default(0).Immutable(),
		field.Time("assigned_at").Immutable(),
		field.Time("due_at").Optional().Nillable(),
		field.Float("progress_percent").
			Default(0).
			Comment("Share of required steps completed, 0-100"),
		field.Time("last_activity_at").Optional().Nillable(),
		field.Time("completed_at").Optional().Nillable(),
	}
}

func (Assignment) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "content_id").Unique(),
	}
}

func (Assignment) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "assignments"}}
}
