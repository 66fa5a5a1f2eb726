// Package querystate holds the mutable, serializable description of a
// query under construction and the transitions that evolve it. Every
// transition returns a new value satisfying the document invariants, so
// an external history manager can keep exact snapshots of each edit.
package querystate

import (
	"strings"

	"pgcomposer/internal/schema"
)

// Join is an explicit join between two selected tables.
type Join struct {
	ID         string         `json:"id"`
	FromTable  schema.TableID `json:"fromTable"`
	FromColumn string         `json:"fromColumn"`
	Type       JoinType       `json:"type"`
	ToTable    schema.TableID `json:"toTable"`
	ToColumn   string         `json:"toColumn"`
}

// Filter is a single conjunctive WHERE condition.
type Filter struct {
	ID       string           `json:"id"`
	Column   schema.ColumnRef `json:"column"`
	Operator Operator         `json:"operator"`
	// Value is ignored for unary operators. Values beginning with ":"
	// are named parameters and pass into SQL verbatim.
	Value string `json:"value,omitempty"`
}

// Sort is a single ORDER BY entry.
type Sort struct {
	ID        string           `json:"id"`
	Column    schema.ColumnRef `json:"column"`
	Direction Direction        `json:"direction"`
}

// CalculatedColumn is a user-authored SQL expression inserted verbatim
// into the SELECT list under a sanitized alias.
type CalculatedColumn struct {
	ID         string `json:"id"`
	Alias      string `json:"alias"`
	Expression string `json:"expression"`
}

// State is the complete description of an in-progress query.
//
// SelectedTables insertion order is significant: the first table is the
// FROM base and joins follow in the order they were added. GroupBy is a
// set with stable insertion order so compilation stays deterministic.
type State struct {
	SelectedTables    []schema.TableID                   `json:"selectedTables"`
	SelectedColumns   []schema.ColumnRef                 `json:"selectedColumns"`
	Aggregations      map[schema.ColumnRef]AggregateFunc `json:"aggregations,omitempty"`
	Joins             []Join                             `json:"joins"`
	Filters           []Filter                           `json:"filters"`
	GroupBy           []schema.ColumnRef                 `json:"groupBy"`
	OrderBy           []Sort                             `json:"orderBy"`
	CalculatedColumns []CalculatedColumn                 `json:"calculatedColumns"`
	Limit             int                                `json:"limit"`
}

// New returns the empty state created when a schema is loaded.
func New() State {
	return State{Limit: defaultLimit}
}

const defaultLimit = 100

// Clone returns a deep copy. Mutations operate on clones so earlier
// snapshots are never aliased.
func (s State) Clone() State {
	out := s
	out.SelectedTables = append([]schema.TableID(nil), s.SelectedTables...)
	out.SelectedColumns = append([]schema.ColumnRef(nil), s.SelectedColumns...)
	out.Joins = append([]Join(nil), s.Joins...)
	out.Filters = append([]Filter(nil), s.Filters...)
	out.GroupBy = append([]schema.ColumnRef(nil), s.GroupBy...)
	out.OrderBy = append([]Sort(nil), s.OrderBy...)
	out.CalculatedColumns = append([]CalculatedColumn(nil), s.CalculatedColumns...)
	if s.Aggregations != nil {
		out.Aggregations = make(map[schema.ColumnRef]AggregateFunc, len(s.Aggregations))
		for ref, fn := range s.Aggregations {
			out.Aggregations[ref] = fn
		}
	}
	return out
}

// HasTable reports whether a table is currently selected.
func (s State) HasTable(id schema.TableID) bool {
	for _, t := range s.SelectedTables {
		if t == id {
			return true
		}
	}
	return false
}

// HasColumn reports whether a column is explicitly selected.
func (s State) HasColumn(ref schema.ColumnRef) bool {
	for _, c := range s.SelectedColumns {
		if c == ref {
			return true
		}
	}
	return false
}

// HasGroupBy reports whether a column is grouped.
func (s State) HasGroupBy(ref schema.ColumnRef) bool {
	for _, c := range s.GroupBy {
		if c == ref {
			return true
		}
	}
	return false
}

// Aggregation returns the aggregate function applied to a column.
// Absent entries report AggNone.
func (s State) Aggregation(ref schema.ColumnRef) AggregateFunc {
	if fn, ok := s.Aggregations[ref]; ok {
		return fn
	}
	return AggNone
}

// TableHasAggregation reports whether any column of the table carries a
// non-NONE aggregate.
func (s State) TableHasAggregation(id schema.TableID) bool {
	for ref, fn := range s.Aggregations {
		if ref.Table == id && fn != AggNone {
			return true
		}
	}
	return false
}

// TableHasGroupBy reports whether any grouped column belongs to the table.
func (s State) TableHasGroupBy(id schema.TableID) bool {
	for _, ref := range s.GroupBy {
		if ref.Table == id {
			return true
		}
	}
	return false
}

// SanitizeAlias lowercases an alias and collapses whitespace runs into
// single underscores, producing a safe SQL identifier fragment.
func SanitizeAlias(alias string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(alias))), "_")
}
