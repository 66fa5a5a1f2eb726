// Package compiler renders a query state plus schema into SQL text. The
// same pure function backs both the live preview (permissive: errors
// become a renderable comment) and the explicit generate action
// (strict: errors propagate with the specific unsatisfied invariant).
// Compilation always re-renders the full statement from scratch; its
// cost is bounded by the size of the query description.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
	"pgcomposer/internal/sqlutil"
)

// Result is a successful compilation. Warnings carry non-fatal
// consistency findings, currently only unjoined selected tables that
// were emitted as comma cross-joins.
type Result struct {
	SQL      string
	Warnings []*ConsistencyError
}

// Compile renders the state strictly: any structural or consistency
// violation is returned as a typed error for the caller to surface.
func Compile(s *schema.Schema, state querystate.State) (Result, error) {
	return compile(s, state, true)
}

// Preview renders the state permissively for live display. It never
// fails: compilation errors are converted into a SQL comment so the UI
// always has something renderable.
func Preview(s *schema.Schema, state querystate.State) string {
	res, err := compile(s, state, false)
	if err != nil {
		return "-- unable to compile query: " + err.Error()
	}
	return res.SQL
}

func compile(s *schema.Schema, state querystate.State, strict bool) (Result, error) {
	if len(state.SelectedTables) == 0 {
		return Result{}, &EmptySelectionError{}
	}
	if err := validateStructure(s, state); err != nil {
		return Result{}, err
	}
	if err := validateGrouping(s, state); err != nil {
		return Result{}, err
	}
	if strict && state.Limit <= 0 {
		return Result{}, &ConsistencyError{Subject: "limit", Reason: "must be a positive row cap"}
	}

	selectItems := buildSelectList(state)

	fromClause, warnings := buildFromClause(state)
	builder := sq.Select(selectItems...).From(fromClause)

	for _, join := range state.Joins {
		builder = builder.JoinClause(fmt.Sprintf("%s JOIN %s ON %s.%s = %s.%s",
			join.Type, join.ToTable, join.FromTable, join.FromColumn, join.ToTable, join.ToColumn))
	}

	for _, filter := range state.Filters {
		condition, err := renderFilter(filter)
		if err != nil {
			return Result{}, err
		}
		builder = builder.Where(condition)
	}

	if len(state.GroupBy) > 0 {
		groups := make([]string, len(state.GroupBy))
		for i, ref := range state.GroupBy {
			groups[i] = ref.String()
		}
		builder = builder.GroupBy(groups...)
	}

	if len(state.OrderBy) > 0 {
		orders := make([]string, len(state.OrderBy))
		for i, ord := range state.OrderBy {
			orders[i] = ord.Column.String() + " " + string(ord.Direction)
		}
		builder = builder.OrderBy(orders...)
	}

	if state.Limit > 0 {
		builder = builder.Limit(uint64(state.Limit))
	}

	sqlText, _, err := builder.ToSql()
	if err != nil {
		return Result{}, fmt.Errorf("failed to assemble SQL: %w", err)
	}
	return Result{SQL: sqlText, Warnings: warnings}, nil
}

// validateStructure enforces invariant 1: every table mentioned by the
// document is selected and present in the schema.
func validateStructure(s *schema.Schema, state querystate.State) error {
	for _, id := range state.SelectedTables {
		if s.Table(id) == nil {
			return &StructuralError{Ref: id.String(), Detail: "is not present in the schema"}
		}
	}

	requireSelected := func(id schema.TableID, what string) error {
		if !state.HasTable(id) {
			return &StructuralError{Ref: id.String(), Detail: "referenced by " + what + " is not selected"}
		}
		return nil
	}

	for _, join := range state.Joins {
		if !join.Type.Valid() {
			return &StructuralError{Ref: string(join.Type), Detail: "is not a valid join type"}
		}
		if err := requireSelected(join.FromTable, "a join"); err != nil {
			return err
		}
		if err := requireSelected(join.ToTable, "a join"); err != nil {
			return err
		}
	}
	for _, ref := range state.SelectedColumns {
		if err := requireSelected(ref.Table, "a selected column"); err != nil {
			return err
		}
	}
	for ref, fn := range state.Aggregations {
		if !fn.Valid() {
			return &StructuralError{Ref: string(fn), Detail: "is not a valid aggregate function"}
		}
		if err := requireSelected(ref.Table, "an aggregation"); err != nil {
			return err
		}
	}
	for _, filter := range state.Filters {
		if !filter.Operator.Valid() {
			return &StructuralError{Ref: string(filter.Operator), Detail: "is not a valid filter operator"}
		}
		if err := requireSelected(filter.Column.Table, "a filter"); err != nil {
			return err
		}
	}
	for _, ref := range state.GroupBy {
		if err := requireSelected(ref.Table, "a grouping"); err != nil {
			return err
		}
	}
	for _, ord := range state.OrderBy {
		if !ord.Direction.Valid() {
			return &StructuralError{Ref: string(ord.Direction), Detail: "is not a valid sort direction"}
		}
		if err := requireSelected(ord.Column.Table, "an ordering"); err != nil {
			return err
		}
	}
	return nil
}

// validateGrouping enforces invariant 2: once any aggregation is active
// (or GROUP BY is non-empty), every non-aggregated selected column must
// be grouped. With no explicit selection and no grouping, the implicit
// whole-table selection makes every plain schema column an offender.
func validateGrouping(s *schema.Schema, state querystate.State) error {
	aggregationActive := len(state.GroupBy) > 0
	for _, fn := range state.Aggregations {
		if fn != querystate.AggNone {
			aggregationActive = true
			break
		}
	}
	if !aggregationActive {
		return nil
	}

	if len(state.SelectedColumns) == 0 {
		if len(state.GroupBy) > 0 {
			// Grouped columns are the effective plain selection.
			return nil
		}
		if len(state.CalculatedColumns) > 0 {
			// Calculated columns replace the whole-row wildcard, so the
			// select list carries no implicit plain columns to group.
			return nil
		}
		for _, id := range state.SelectedTables {
			table := s.Table(id)
			for _, col := range table.Columns {
				ref := schema.NewColumnRef(id, col.Name)
				if state.Aggregation(ref) == querystate.AggNone {
					return &ConsistencyError{
						Subject: ref.String(),
						Reason:  "must appear in GROUP BY or be aggregated",
					}
				}
			}
		}
		return nil
	}

	for _, ref := range state.SelectedColumns {
		if state.Aggregation(ref) != querystate.AggNone {
			continue
		}
		if !state.HasGroupBy(ref) {
			return &ConsistencyError{
				Subject: ref.String(),
				Reason:  "must appear in GROUP BY or be aggregated",
			}
		}
	}
	return nil
}

// buildSelectList assembles the SELECT items in selected-table order:
// per-table wildcards for untouched tables, explicit columns (wrapped
// in their aggregate), then calculated columns last.
func buildSelectList(state querystate.State) []string {
	var items []string

	explicitEmpty := len(state.SelectedColumns) == 0
	for _, id := range state.SelectedTables {
		if explicitEmpty {
			// With no explicit selection the grouped columns become the
			// plain list and aggregated columns follow. The whole-row
			// wildcard is the baseline for a completely untouched query:
			// a calculated column already narrows the selection, so it
			// suppresses the wildcard just like grouping or aggregation.
			plain := 0
			for _, ref := range state.GroupBy {
				if ref.Table == id {
					items = append(items, ref.String())
					plain++
				}
			}
			aggs := aggregationsForTable(state, id)
			items = append(items, aggs...)
			if plain == 0 && len(aggs) == 0 && len(state.CalculatedColumns) == 0 {
				items = append(items, id.String()+".*")
			}
			continue
		}

		seen := make(map[schema.ColumnRef]struct{})
		for _, ref := range state.SelectedColumns {
			if ref.Table != id {
				continue
			}
			seen[ref] = struct{}{}
			items = append(items, renderColumn(ref, state.Aggregation(ref)))
		}
		// Aggregation entries normally imply selection, but documents
		// arriving from external producers may carry aggregate-only
		// columns; they are still conceptually selected.
		for _, item := range leftoverAggregations(state, id, seen) {
			items = append(items, item)
		}
	}

	for _, cc := range state.CalculatedColumns {
		items = append(items, fmt.Sprintf("(%s) AS %s", cc.Expression, cc.Alias))
	}
	return items
}

func renderColumn(ref schema.ColumnRef, fn querystate.AggregateFunc) string {
	if fn == querystate.AggNone {
		return ref.String()
	}
	return fmt.Sprintf("%s(%s) AS %s_%s", fn, ref, ref.Column, strings.ToLower(string(fn)))
}

// aggregationsForTable renders a table's aggregate entries in canonical
// column order so map iteration never leaks into the output.
func aggregationsForTable(state querystate.State, id schema.TableID) []string {
	var refs []schema.ColumnRef
	for ref, fn := range state.Aggregations {
		if ref.Table == id && fn != querystate.AggNone {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })

	items := make([]string, len(refs))
	for i, ref := range refs {
		items[i] = renderColumn(ref, state.Aggregation(ref))
	}
	return items
}

func leftoverAggregations(state querystate.State, id schema.TableID, seen map[schema.ColumnRef]struct{}) []string {
	var refs []schema.ColumnRef
	for ref, fn := range state.Aggregations {
		if ref.Table != id || fn == querystate.AggNone {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })

	items := make([]string, len(refs))
	for i, ref := range refs {
		items[i] = renderColumn(ref, state.Aggregation(ref))
	}
	return items
}

// buildFromClause picks the first selected table as the FROM base and
// appends any selected table not touched by a join as a comma
// cross-join. Intentional cross-joins are legitimate but rare, so each
// one is reported as a warning instead of a hard failure.
func buildFromClause(state querystate.State) (string, []*ConsistencyError) {
	base := state.SelectedTables[0]

	joined := make(map[schema.TableID]struct{}, len(state.SelectedTables))
	joined[base] = struct{}{}
	for _, join := range state.Joins {
		joined[join.FromTable] = struct{}{}
		joined[join.ToTable] = struct{}{}
	}

	parts := []string{base.String()}
	var warnings []*ConsistencyError
	for _, id := range state.SelectedTables[1:] {
		if _, ok := joined[id]; ok {
			continue
		}
		parts = append(parts, id.String())
		warnings = append(warnings, &ConsistencyError{
			Subject: id.String(),
			Reason:  "is not connected by any join; emitted as a cross join",
		})
	}
	return strings.Join(parts, ", "), warnings
}

func renderFilter(filter querystate.Filter) (string, error) {
	column := filter.Column.String()

	if filter.Operator.IsUnary() {
		return column + " " + string(filter.Operator), nil
	}

	if filter.Operator == querystate.OpIn {
		var literals []string
		for _, raw := range strings.Split(filter.Value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			literals = append(literals, sqlutil.Literal(raw))
		}
		if len(literals) == 0 {
			return "", &ConsistencyError{Subject: column, Reason: "IN filter requires at least one value"}
		}
		return column + " IN (" + strings.Join(literals, ", ") + ")", nil
	}

	return column + " " + string(filter.Operator) + " " + sqlutil.Literal(filter.Value), nil
}
