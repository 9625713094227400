package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StepProgress is the current state of one path step within an assignment.
// Rows are upserted on every applied activity.
type StepProgress struct {
	ent.Schema
}

func (StepProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("assignment_id").NotEmpty(),
		field.String("step_id").NotEmpty(),
		field.String("state").
			NotEmpty().
			Comment("locked, unlocked, in_progress, completed or failed_remedial"),
		field.Float("score").Default(0),
		field.Float("attendance").Default(0),
		field.Float("watch_percent").Default(0),
		field.Int("attempts").Default(0),
		field.Time("started_at").Optional().Nillable(),
		field.Time("completed_at").Optional().Nillable(),
		field.Time("updated_at"),
	}
}

func (StepProgress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("assignment_id", "step_id").Unique(),
	}
}

func (StepProgress) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "step_progress"}}
}
