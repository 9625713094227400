package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StepTransition records one step state change.
type StepTransition struct {
	ent.Schema
}

func (StepTransition) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (StepTransition) Fields() []ent.Field {
	return []ent.Field{
		field.String("assignment_id").NotEmpty().Immutable(),
		field.String("step_id").NotEmpty().Immutable(),
		field.String("from_state").NotEmpty().Immutable(),
		field.String("to_state").NotEmpty().Immutable(),
		field.String("trigger_name").
			NotEmpty().
			Immutable().
			Comment("What caused the change, e.g. criteria-met"),
		field.Time("occurred_at").Immutable(),
	}
}

func (StepTransition) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("assignment_id"),
	}
}

func (StepTransition) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "step_transitions"}}
}
