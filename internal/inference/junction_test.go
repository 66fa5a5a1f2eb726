package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
)

func junctionSchema() *schema.Schema {
	return &schema.Schema{Tables: []schema.Table{
		{
			ID: schema.NewTableID("", "students"),
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", IsPrimaryKey: true},
				{Name: "name", DataType: "varchar"},
			},
		},
		{
			ID: schema.NewTableID("", "courses"),
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", IsPrimaryKey: true},
				{Name: "title", DataType: "varchar"},
			},
		},
		{
			ID: schema.NewTableID("", "enrollments"),
			Columns: []schema.Column{
				{Name: "student_id", DataType: "integer", IsPrimaryKey: true, IsForeignKey: true, References: "public.students.id"},
				{Name: "course_id", DataType: "integer", IsPrimaryKey: true, IsForeignKey: true, References: "public.courses.id"},
				{Name: "enrolled_at", DataType: "timestamp"},
			},
		},
		{
			ID: schema.NewTableID("", "notes"),
			Columns: []schema.Column{
				// FK columns outside the primary key do not make a junction.
				{Name: "id", DataType: "integer", IsPrimaryKey: true},
				{Name: "student_id", DataType: "integer", IsForeignKey: true, References: "public.students.id"},
				{Name: "course_id", DataType: "integer", IsForeignKey: true, References: "public.courses.id"},
			},
		},
	}}
}

func TestInferPathDirectRelationshipWins(t *testing.T) {
	s := junctionSchema()
	path := InferPath(s, schema.NewTableID("", "enrollments"), schema.NewTableID("", "students"))
	require.Len(t, path, 1)
	assert.Equal(t, "student_id", path[0].FromColumn)
}

func TestInferPathThroughJunction(t *testing.T) {
	s := junctionSchema()
	students := schema.NewTableID("", "students")
	courses := schema.NewTableID("", "courses")

	path := InferPath(s, students, courses)
	require.Len(t, path, 2)

	first, second := path[0], path[1]
	assert.Equal(t, students, first.FromTable)
	assert.Equal(t, "id", first.FromColumn)
	assert.Equal(t, schema.NewTableID("", "enrollments"), first.ToTable)
	assert.Equal(t, "student_id", first.ToColumn)
	assert.Equal(t, querystate.JoinLeft, first.Type)

	assert.Equal(t, schema.NewTableID("", "enrollments"), second.FromTable)
	assert.Equal(t, "course_id", second.FromColumn)
	assert.Equal(t, courses, second.ToTable)
	assert.Equal(t, "id", second.ToColumn)

	// The reverse direction produces the mirrored path.
	reverse := InferPath(s, courses, students)
	require.Len(t, reverse, 2)
	assert.Equal(t, courses, reverse[0].FromTable)
	assert.Equal(t, "course_id", reverse[0].ToColumn)
}

func TestInferPathRejectsNonJunctionCandidates(t *testing.T) {
	s := junctionSchema()
	// Removing enrollments leaves only notes, whose FK columns are not
	// part of its primary key.
	s.Tables = append(s.Tables[:2], s.Tables[3])

	path := InferPath(s, schema.NewTableID("", "students"), schema.NewTableID("", "courses"))
	assert.Nil(t, path)
}

func TestInferPathUnknownTables(t *testing.T) {
	s := junctionSchema()
	assert.Nil(t, InferPath(s, schema.NewTableID("", "students"), schema.NewTableID("", "missing")))
	assert.Nil(t, InferPath(nil, schema.NewTableID("", "students"), schema.NewTableID("", "courses")))
}
