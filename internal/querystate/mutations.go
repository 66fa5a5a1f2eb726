package querystate

import (
	"fmt"

	"github.com/google/uuid"

	"pgcomposer/internal/exprcheck"
	"pgcomposer/internal/schema"
)

// ToggleTable selects an unselected table or removes a selected one.
// Removal cascades: the table's columns leave the selection, grouping,
// ordering, and aggregation maps, and every join or filter mentioning
// the table is dropped.
func (s State) ToggleTable(id schema.TableID) State {
	if s.HasTable(id) {
		return s.RemoveTable(id)
	}
	return s.AddTable(id)
}

// AddTable appends a table to the selection. Idempotent.
func (s State) AddTable(id schema.TableID) State {
	if s.HasTable(id) {
		return s
	}
	out := s.Clone()
	out.SelectedTables = append(out.SelectedTables, id)
	return out
}

// RemoveTable deselects a table and cascades per the document
// invariants. Re-adding the table later restores none of the cascaded
// associations.
func (s State) RemoveTable(id schema.TableID) State {
	out := s.Clone()

	tables := out.SelectedTables[:0]
	for _, t := range out.SelectedTables {
		if t != id {
			tables = append(tables, t)
		}
	}
	out.SelectedTables = tables

	columns := out.SelectedColumns[:0]
	for _, c := range out.SelectedColumns {
		if c.Table != id {
			columns = append(columns, c)
		}
	}
	out.SelectedColumns = columns

	for ref := range out.Aggregations {
		if ref.Table == id {
			delete(out.Aggregations, ref)
		}
	}

	joins := out.Joins[:0]
	for _, j := range out.Joins {
		if j.FromTable != id && j.ToTable != id {
			joins = append(joins, j)
		}
	}
	out.Joins = joins

	filters := out.Filters[:0]
	for _, f := range out.Filters {
		if f.Column.Table != id {
			filters = append(filters, f)
		}
	}
	out.Filters = filters

	groupBy := out.GroupBy[:0]
	for _, g := range out.GroupBy {
		if g.Table != id {
			groupBy = append(groupBy, g)
		}
	}
	out.GroupBy = groupBy

	orderBy := out.OrderBy[:0]
	for _, o := range out.OrderBy {
		if o.Column.Table != id {
			orderBy = append(orderBy, o)
		}
	}
	out.OrderBy = orderBy

	return out
}

// ToggleColumn selects or deselects a column. Selecting a column on a
// table not yet selected implicitly adds the table. Deselecting also
// drops the column's aggregation so it cannot linger as an implicit
// selection.
func (s State) ToggleColumn(ref schema.ColumnRef) State {
	if s.HasColumn(ref) {
		out := s.Clone()
		columns := out.SelectedColumns[:0]
		for _, c := range out.SelectedColumns {
			if c != ref {
				columns = append(columns, c)
			}
		}
		out.SelectedColumns = columns
		delete(out.Aggregations, ref)
		return out
	}

	out := s.AddTable(ref.Table).Clone()
	out.SelectedColumns = append(out.SelectedColumns, ref)
	return out
}

// SetAggregation applies an aggregate function to a column. AggNone
// removes the mapping entry; anything else implicitly selects the
// column (and its table) if absent.
func (s State) SetAggregation(ref schema.ColumnRef, fn AggregateFunc) State {
	out := s.Clone()
	if fn == AggNone {
		delete(out.Aggregations, ref)
		return out
	}

	if !out.HasTable(ref.Table) {
		out = out.AddTable(ref.Table)
	}
	if !out.HasColumn(ref) {
		out.SelectedColumns = append(out.SelectedColumns, ref)
	}
	if out.Aggregations == nil {
		out.Aggregations = make(map[schema.ColumnRef]AggregateFunc)
	}
	out.Aggregations[ref] = fn
	return out
}

// AddJoin appends an explicit join. A missing id is assigned; both
// endpoint tables are implicitly selected so the document never holds a
// join against an unselected table.
func (s State) AddJoin(j Join) State {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	out := s.AddTable(j.FromTable).AddTable(j.ToTable).Clone()
	out.Joins = append(out.Joins, j)
	return out
}

// UpdateJoin replaces the join with the same id, keeping list order.
func (s State) UpdateJoin(j Join) State {
	out := s.AddTable(j.FromTable).AddTable(j.ToTable).Clone()
	for i := range out.Joins {
		if out.Joins[i].ID == j.ID {
			out.Joins[i] = j
			break
		}
	}
	return out
}

// RemoveJoin drops the join with the given id.
func (s State) RemoveJoin(id string) State {
	out := s.Clone()
	joins := out.Joins[:0]
	for _, j := range out.Joins {
		if j.ID != id {
			joins = append(joins, j)
		}
	}
	out.Joins = joins
	return out
}

// AddFilter appends a filter condition, implicitly selecting the
// filtered table. A missing id is assigned.
func (s State) AddFilter(f Filter) State {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	out := s.AddTable(f.Column.Table).Clone()
	out.Filters = append(out.Filters, f)
	return out
}

// UpdateFilter replaces the filter with the same id, keeping list order.
func (s State) UpdateFilter(f Filter) State {
	out := s.AddTable(f.Column.Table).Clone()
	for i := range out.Filters {
		if out.Filters[i].ID == f.ID {
			out.Filters[i] = f
			break
		}
	}
	return out
}

// RemoveFilter drops the filter with the given id.
func (s State) RemoveFilter(id string) State {
	out := s.Clone()
	filters := out.Filters[:0]
	for _, f := range out.Filters {
		if f.ID != id {
			filters = append(filters, f)
		}
	}
	out.Filters = filters
	return out
}

// ToggleGroupBy adds or removes a grouping column, implicitly selecting
// the table on add.
func (s State) ToggleGroupBy(ref schema.ColumnRef) State {
	if s.HasGroupBy(ref) {
		out := s.Clone()
		groupBy := out.GroupBy[:0]
		for _, g := range out.GroupBy {
			if g != ref {
				groupBy = append(groupBy, g)
			}
		}
		out.GroupBy = groupBy
		return out
	}

	out := s.AddTable(ref.Table).Clone()
	out.GroupBy = append(out.GroupBy, ref)
	return out
}

// AddSort appends an ORDER BY entry, implicitly selecting the table.
func (s State) AddSort(ref schema.ColumnRef, dir Direction) State {
	out := s.AddTable(ref.Table).Clone()
	out.OrderBy = append(out.OrderBy, Sort{
		ID:        uuid.New().String(),
		Column:    ref,
		Direction: dir,
	})
	return out
}

// UpdateSort replaces the sort with the same id, keeping list order.
func (s State) UpdateSort(sort Sort) State {
	out := s.AddTable(sort.Column.Table).Clone()
	for i := range out.OrderBy {
		if out.OrderBy[i].ID == sort.ID {
			out.OrderBy[i] = sort
			break
		}
	}
	return out
}

// RemoveSort drops the sort with the given id.
func (s State) RemoveSort(id string) State {
	out := s.Clone()
	orderBy := out.OrderBy[:0]
	for _, o := range out.OrderBy {
		if o.ID != id {
			orderBy = append(orderBy, o)
		}
	}
	out.OrderBy = orderBy
	return out
}

// AddCalculatedColumn validates and appends a calculated column. The
// alias is sanitized (lowercased, whitespace collapsed to underscores)
// and must be unique among existing calculated columns.
func (s State) AddCalculatedColumn(alias, expression string) (State, error) {
	if err := exprcheck.Validate(alias, expression); err != nil {
		return s, err
	}
	sanitized := SanitizeAlias(alias)
	for _, cc := range s.CalculatedColumns {
		if cc.Alias == sanitized {
			return s, fmt.Errorf("duplicate calculated column alias %q", sanitized)
		}
	}

	out := s.Clone()
	out.CalculatedColumns = append(out.CalculatedColumns, CalculatedColumn{
		ID:         uuid.New().String(),
		Alias:      sanitized,
		Expression: expression,
	})
	return out, nil
}

// RemoveCalculatedColumn drops the calculated column with the given id.
func (s State) RemoveCalculatedColumn(id string) State {
	out := s.Clone()
	columns := out.CalculatedColumns[:0]
	for _, cc := range out.CalculatedColumns {
		if cc.ID != id {
			columns = append(columns, cc)
		}
	}
	out.CalculatedColumns = columns
	return out
}

// SetLimit replaces the row cap.
func (s State) SetLimit(limit int) State {
	out := s.Clone()
	out.Limit = limit
	return out
}
