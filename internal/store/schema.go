package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	assignmentsTable     = "assignments"
	stepProgressTable    = "step_progress"
	stepTransitionsTable = "step_transitions"
	pointsLedgerTable    = "points_ledger"
	badgeAwardsTable     = "badge_awards"
)

var (
	// AssignmentsColumns holds the columns for the "assignments" table.
	// Status is derived on read and has no column.
	AssignmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "content_type", Type: field.TypeString},
		{Name: "content_id", Type: field.TypeString},
		{Name: "rule_id", Type: field.TypeString, Default: ""},
		{Name: "rule_version", Type: field.TypeInt, Default: 0},
		{Name: "assigned_at", Type: field.TypeTime},
		{Name: "due_at", Type: field.TypeTime, Nullable: true},
		{Name: "progress_percent", Type: field.TypeFloat64, Default: 0},
		{Name: "last_activity_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
	}
	// AssignmentsTable holds the schema information for the "assignments" table.
	AssignmentsTable = &schema.Table{
		Name:       assignmentsTable,
		Columns:    AssignmentsColumns,
		PrimaryKey: []*schema.Column{AssignmentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "assignment_user_id_content_id",
				Unique:  true,
				Columns: []*schema.Column{AssignmentsColumns[1], AssignmentsColumns[3]},
			},
		},
	}

	// StepProgressColumns holds the columns for the "step_progress" table.
	StepProgressColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "assignment_id", Type: field.TypeString},
		{Name: "step_id", Type: field.TypeString},
		{Name: "state", Type: field.TypeString},
		{Name: "score", Type: field.TypeFloat64, Default: 0},
		{Name: "attendance", Type: field.TypeFloat64, Default: 0},
		{Name: "watch_percent", Type: field.TypeFloat64, Default: 0},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "started_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// StepProgressTable holds the schema information for the "step_progress" table.
	StepProgressTable = &schema.Table{
		Name:       stepProgressTable,
		Columns:    StepProgressColumns,
		PrimaryKey: []*schema.Column{StepProgressColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "stepprogress_assignment_id_step_id",
				Unique:  true,
				Columns: []*schema.Column{StepProgressColumns[1], StepProgressColumns[2]},
			},
		},
	}

	// StepTransitionsColumns holds the columns for the "step_transitions" table.
	StepTransitionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "assignment_id", Type: field.TypeString},
		{Name: "step_id", Type: field.TypeString},
		{Name: "from_state", Type: field.TypeString},
		{Name: "to_state", Type: field.TypeString},
		{Name: "trigger_name", Type: field.TypeString},
		{Name: "occurred_at", Type: field.TypeTime},
	}
	// StepTransitionsTable holds the schema information for the "step_transitions" table.
	StepTransitionsTable = &schema.Table{
		Name:       stepTransitionsTable,
		Columns:    StepTransitionsColumns,
		PrimaryKey: []*schema.Column{StepTransitionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "steptransition_assignment_id",
				Columns: []*schema.Column{StepTransitionsColumns[2]},
			},
		},
	}

	// PointsLedgerColumns holds the columns for the "points_ledger" table.
	// Rows are only ever inserted.
	PointsLedgerColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "entry_id", Type: field.TypeString, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "rule_id", Type: field.TypeString},
		{Name: "source_id", Type: field.TypeString},
		{Name: "points", Type: field.TypeInt},
		{Name: "idempotency_key", Type: field.TypeString, Unique: true},
		{Name: "day", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// PointsLedgerTable holds the schema information for the "points_ledger" table.
	PointsLedgerTable = &schema.Table{
		Name:       pointsLedgerTable,
		Columns:    PointsLedgerColumns,
		PrimaryKey: []*schema.Column{PointsLedgerColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "pointsledger_user_id_day",
				Columns: []*schema.Column{PointsLedgerColumns[3], PointsLedgerColumns[8]},
			},
			{
				Name:    "pointsledger_user_id_rule_id_source_id",
				Columns: []*schema.Column{PointsLedgerColumns[3], PointsLedgerColumns[4], PointsLedgerColumns[5]},
			},
		},
	}

	// BadgeAwardsColumns holds the columns for the "badge_awards" table.
	BadgeAwardsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "award_id", Type: field.TypeString, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "badge_id", Type: field.TypeString},
		{Name: "awarded_at", Type: field.TypeTime},
	}
	// BadgeAwardsTable holds the schema information for the "badge_awards" table.
	BadgeAwardsTable = &schema.Table{
		Name:       badgeAwardsTable,
		Columns:    BadgeAwardsColumns,
		PrimaryKey: []*schema.Column{BadgeAwardsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "badgeaward_user_id_badge_id",
				Unique:  true,
				Columns: []*schema.Column{BadgeAwardsColumns[3], BadgeAwardsColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		AssignmentsTable,
		StepProgressTable,
		StepTransitionsTable,
		PointsLedgerTable,
		BadgeAwardsTable,
	}
)
