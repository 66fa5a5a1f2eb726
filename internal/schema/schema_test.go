package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnReference(t *testing.T) {
	col := Column{Name: "user_id", IsForeignKey: true, References: "public.users.id"}
	target, legacy, ok := col.Reference()
	require.True(t, ok)
	assert.False(t, legacy)
	assert.Equal(t, "public.users.id", target.String())

	// Legacy two-part references resolve on table name only.
	col = Column{Name: "order_id", IsForeignKey: true, References: "orders.id"}
	target, legacy, ok = col.Reference()
	require.True(t, ok)
	assert.True(t, legacy)
	assert.Equal(t, "public.orders.id", target.String())

	col = Column{Name: "plain"}
	_, _, ok = col.Reference()
	assert.False(t, ok)

	col = Column{Name: "broken", References: "not a ref at all..."}
	_, _, ok = col.Reference()
	assert.False(t, ok)
}

func TestSchemaLookups(t *testing.T) {
	s := &Schema{Tables: []Table{
		{ID: NewTableID("", "users"), Columns: []Column{{Name: "id", IsPrimaryKey: true}}},
		{ID: NewTableID("analytics", "users"), Columns: []Column{{Name: "id"}}},
	}}

	require.NotNil(t, s.Table(NewTableID("", "users")))
	assert.Nil(t, s.Table(NewTableID("", "orders")))

	assert.Len(t, s.TablesNamed("users"), 2)
	assert.Empty(t, s.TablesNamed("orders"))

	col := s.ResolveColumn(NewColumnRef(NewTableID("", "users"), "id"))
	require.NotNil(t, col)
	assert.True(t, col.IsPrimaryKey)
	assert.Nil(t, s.ResolveColumn(NewColumnRef(NewTableID("", "users"), "missing")))
}

func TestSchemaValidate(t *testing.T) {
	valid := &Schema{Tables: []Table{
		{ID: NewTableID("", "users"), Columns: []Column{{Name: "id"}}},
	}}
	require.NoError(t, valid.Validate())

	dup := &Schema{Tables: []Table{
		{ID: NewTableID("", "users"), Columns: []Column{{Name: "id"}}},
		{ID: NewTableID("", "users"), Columns: []Column{{Name: "id"}}},
	}}
	assert.ErrorContains(t, dup.Validate(), "duplicate table")

	dupCol := &Schema{Tables: []Table{
		{ID: NewTableID("", "users"), Columns: []Column{{Name: "id"}, {Name: "id"}}},
	}}
	assert.ErrorContains(t, dupCol.Validate(), "duplicate column")
}

func TestParseYAMLDocument(t *testing.T) {
	doc := `
tables:
  - id: public.users
    columns:
      - name: id
        data_type: integer
        primary_key: true
      - name: email
        data_type: varchar
  - id: public.orders
    columns:
      - name: id
        data_type: integer
        primary_key: true
      - name: user_id
        data_type: integer
        foreign_key: true
        references: public.users.id
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)

	orders := s.Table(NewTableID("", "orders"))
	require.NotNil(t, orders)
	userID := orders.Column("user_id")
	require.NotNil(t, userID)
	assert.True(t, userID.IsForeignKey)
	assert.Equal(t, "public.users.id", userID.References)
}

func TestParseJSONDocument(t *testing.T) {
	doc := `{
		"tables": [
			{
				"id": "public.users",
				"columns": [
					{"name": "id", "dataType": "integer", "isPrimaryKey": true}
				]
			}
		]
	}`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "public.users", s.Tables[0].ID.String())
	assert.True(t, s.Tables[0].Columns[0].IsPrimaryKey)
}

func TestParseRejectsInvalidDocument(t *testing.T) {
	_, err := Parse([]byte("tables: [not, a, table]"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"tables": [{"id": "public.users"}, {"id": "public.users"}]}`))
	assert.ErrorContains(t, err, "duplicate table")
}
