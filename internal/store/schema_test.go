package store

import (
	"testing"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entschema "github.com/arong/lmsengine/ent/schema"
)

func schemaTable(t *testing.T, s ent.Interface) string {
	t.Helper()
	for _, a := range s.Annotations() {
		if ann, ok := a.(entsql.Annotation); ok && ann.Table != "" {
			return ann.Table
		}
	}
	t.Fatalf("%T has no table annotation", s)
	return ""
}

func columnNames(cols []*schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// The runtime tables must stay in step with the ent schema definitions.
func TestTablesMatchEntSchema(t *testing.T) {
	tests := []struct {
		schema ent.Interface
		table  *schema.Table
	}{
		{entschema.Assignment{}, AssignmentsTable},
		{entschema.StepProgress{}, StepProgressTable},
		{entschema.StepTransition{}, StepTransitionsTable},
		{entschema.LedgerEntry{}, PointsLedgerTable},
		{entschema.BadgeAward{}, BadgeAwardsTable},
	}
	require.Len(t, Tables, len(tests))

	for _, tt := range tests {
		t.Run(tt.table.Name, func(t *testing.T) {
			assert.Equal(t, tt.table.Name, schemaTable(t, tt.schema))

			var fields []ent.Field
			for _, m := range tt.schema.Mixin() {
				fields = append(fields, m.Fields()...)
			}
			fields = append(fields, tt.schema.Fields()...)

			byName := make(map[string]*schema.Column, len(tt.table.Columns))
			for _, c := range tt.table.Columns {
				byName[c.Name] = c
			}
			seen := map[string]bool{"id": true}
			for _, f := range fields {
				d := f.Descriptor()
				seen[d.Name] = true
				col, ok := byName[d.Name]
				if !assert.True(t, ok, "field %s has no column", d.Name) {
					continue
				}
				assert.Equal(t, d.Info.Type, col.Type, "type of %s", d.Name)
				assert.Equal(t, d.Nillable, col.Nullable, "nullability of %s", d.Name)
				if d.Name != "id" {
					assert.Equal(t, d.Unique, col.Unique, "uniqueness of %s", d.Name)
				}
			}
			for _, c := range tt.table.Columns {
				assert.True(t, seen[c.Name], "column %s has no field", c.Name)
			}

			require.Len(t, tt.table.Indexes, len(tt.schema.Indexes()))
			for _, idx := range tt.schema.Indexes() {
				d := idx.Descriptor()
				found := false
				for _, ti := range tt.table.Indexes {
					if assert.ObjectsAreEqual(d.Fields, columnNames(ti.Columns)) {
						found = true
						assert.Equal(t, d.Unique, ti.Unique, "uniqueness of index %v", d.Fields)
					}
				}
				assert.True(t, found, "index %v has no table index", d.Fields)
			}
		})
	}
}
