package querystate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgcomposer/internal/schema"
)

var (
	usersTable  = schema.NewTableID("", "users")
	ordersTable = schema.NewTableID("", "orders")

	ordersAmount = schema.NewColumnRef(ordersTable, "amount")
	ordersStatus = schema.NewColumnRef(ordersTable, "status")
	usersName    = schema.NewColumnRef(usersTable, "name")
)

func TestToggleTable(t *testing.T) {
	s := New().ToggleTable(ordersTable)
	assert.True(t, s.HasTable(ordersTable))

	s = s.ToggleTable(ordersTable)
	assert.False(t, s.HasTable(ordersTable))
}

func TestToggleColumnImplicitlyAddsTable(t *testing.T) {
	s := New().ToggleColumn(ordersAmount)
	assert.True(t, s.HasTable(ordersTable))
	assert.True(t, s.HasColumn(ordersAmount))
}

func TestToggleColumnOffDropsAggregation(t *testing.T) {
	s := New().SetAggregation(ordersAmount, AggSum)
	require.Equal(t, AggSum, s.Aggregation(ordersAmount))

	s = s.ToggleColumn(ordersAmount)
	assert.False(t, s.HasColumn(ordersAmount))
	assert.Equal(t, AggNone, s.Aggregation(ordersAmount))
}

func TestSetAggregationImpliesSelection(t *testing.T) {
	s := New().SetAggregation(ordersAmount, AggAvg)
	assert.True(t, s.HasTable(ordersTable))
	assert.True(t, s.HasColumn(ordersAmount))
	assert.Equal(t, AggAvg, s.Aggregation(ordersAmount))

	// NONE removes the mapping entry but keeps the column selected.
	s = s.SetAggregation(ordersAmount, AggNone)
	assert.True(t, s.HasColumn(ordersAmount))
	_, present := s.Aggregations[ordersAmount]
	assert.False(t, present)
}

func TestAddJoinAssignsIDAndSelectsTables(t *testing.T) {
	s := New().AddJoin(Join{
		FromTable:  ordersTable,
		FromColumn: "user_id",
		Type:       JoinLeft,
		ToTable:    usersTable,
		ToColumn:   "id",
	})

	require.Len(t, s.Joins, 1)
	assert.NotEmpty(t, s.Joins[0].ID)
	assert.True(t, s.HasTable(ordersTable))
	assert.True(t, s.HasTable(usersTable))
}

func TestRemoveTableCascades(t *testing.T) {
	s := New().
		ToggleColumn(ordersAmount).
		ToggleColumn(usersName).
		SetAggregation(ordersAmount, AggSum).
		AddJoin(Join{FromTable: ordersTable, FromColumn: "user_id", Type: JoinLeft, ToTable: usersTable, ToColumn: "id"}).
		AddFilter(Filter{Column: ordersStatus, Operator: OpEqual, Value: "active"}).
		ToggleGroupBy(ordersStatus).
		AddSort(ordersAmount, Descending)

	s = s.RemoveTable(ordersTable)

	assert.False(t, s.HasTable(ordersTable))
	assert.True(t, s.HasTable(usersTable))
	assert.False(t, s.HasColumn(ordersAmount))
	assert.True(t, s.HasColumn(usersName))
	assert.Empty(t, s.Joins)
	assert.Empty(t, s.Filters)
	assert.Empty(t, s.GroupBy)
	assert.Empty(t, s.OrderBy)
	assert.Equal(t, AggNone, s.Aggregation(ordersAmount))

	// Re-adding the table restores none of the cascaded associations.
	s = s.AddTable(ordersTable)
	assert.Empty(t, s.Joins)
	assert.Empty(t, s.Filters)
	assert.False(t, s.HasColumn(ordersAmount))
}

func TestMutationsDoNotAliasSnapshots(t *testing.T) {
	before := New().ToggleColumn(ordersAmount).AddFilter(Filter{Column: ordersStatus, Operator: OpEqual, Value: "active"})
	snapshot := before.Clone()

	_ = before.RemoveTable(ordersTable)
	_ = before.ToggleColumn(ordersStatus)
	_ = before.SetLimit(7)

	assert.Equal(t, snapshot, before)
}

func TestFilterLifecycle(t *testing.T) {
	s := New().AddFilter(Filter{Column: ordersStatus, Operator: OpEqual, Value: "active"})
	require.Len(t, s.Filters, 1)
	id := s.Filters[0].ID
	require.NotEmpty(t, id)

	s = s.UpdateFilter(Filter{ID: id, Column: ordersStatus, Operator: OpNotEqual, Value: "archived"})
	require.Len(t, s.Filters, 1)
	assert.Equal(t, OpNotEqual, s.Filters[0].Operator)
	assert.Equal(t, "archived", s.Filters[0].Value)

	s = s.RemoveFilter(id)
	assert.Empty(t, s.Filters)
}

func TestSortLifecycle(t *testing.T) {
	s := New().AddSort(ordersAmount, Ascending)
	require.Len(t, s.OrderBy, 1)
	id := s.OrderBy[0].ID

	s = s.UpdateSort(Sort{ID: id, Column: ordersAmount, Direction: Descending})
	assert.Equal(t, Descending, s.OrderBy[0].Direction)

	s = s.RemoveSort(id)
	assert.Empty(t, s.OrderBy)
}

func TestToggleGroupBy(t *testing.T) {
	s := New().ToggleGroupBy(ordersStatus)
	assert.True(t, s.HasGroupBy(ordersStatus))
	assert.True(t, s.HasTable(ordersTable))

	s = s.ToggleGroupBy(ordersStatus)
	assert.False(t, s.HasGroupBy(ordersStatus))
}

func TestAddCalculatedColumn(t *testing.T) {
	s, err := New().AddCalculatedColumn("Total Value", "(public.orders.amount * 1.2)")
	require.NoError(t, err)
	require.Len(t, s.CalculatedColumns, 1)
	assert.Equal(t, "total_value", s.CalculatedColumns[0].Alias)
	assert.NotEmpty(t, s.CalculatedColumns[0].ID)

	_, err = s.AddCalculatedColumn("total value", "(1)")
	assert.ErrorContains(t, err, "duplicate calculated column alias")

	_, err = s.AddCalculatedColumn("broken", "(a + b")
	assert.ErrorContains(t, err, "unbalanced parentheses")

	s = s.RemoveCalculatedColumn(s.CalculatedColumns[0].ID)
	assert.Empty(t, s.CalculatedColumns)
}

func TestSanitizeAlias(t *testing.T) {
	assert.Equal(t, "total_value", SanitizeAlias("Total Value"))
	assert.Equal(t, "a_b_c", SanitizeAlias("  a\tb   c "))
	assert.Equal(t, "plain", SanitizeAlias("plain"))
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := New().
		ToggleColumn(ordersStatus).
		SetAggregation(ordersAmount, AggSum).
		AddFilter(Filter{Column: ordersStatus, Operator: OpIn, Value: "active,pending"}).
		ToggleGroupBy(ordersStatus).
		AddSort(ordersStatus, Ascending).
		SetLimit(50)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)
}
