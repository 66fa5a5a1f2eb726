// Package schema defines the in-memory description of a database that the
// composer works against: tables, columns, primary and foreign keys. The
// description is supplied by an external connector or generator and is
// read-only for the lifetime of a query-building session.
package schema

import (
	"fmt"
	"strings"
)

// Column represents a database column.
type Column struct {
	Name         string `json:"name" yaml:"name"`
	DataType     string `json:"dataType" yaml:"data_type"`
	IsPrimaryKey bool   `json:"isPrimaryKey,omitempty" yaml:"primary_key,omitempty"`
	IsForeignKey bool   `json:"isForeignKey,omitempty" yaml:"foreign_key,omitempty"`
	// References encodes the FK target as "schema.table.column", or the
	// legacy "table.column" form emitted by older schema generators.
	References string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Reference resolves the FK target of a column. The returned target
// table is schema-qualified even for legacy two-part references.
// ok is false when the column declares no reference or it is malformed.
func (c Column) Reference() (target ColumnRef, legacy bool, ok bool) {
	ref := strings.TrimSpace(c.References)
	if ref == "" {
		return ColumnRef{}, false, false
	}
	parsed, err := ParseColumnRef(ref)
	if err != nil {
		return ColumnRef{}, false, false
	}
	return parsed, strings.Count(ref, ".") == 1, true
}

// Table represents a database table.
type Table struct {
	ID      TableID  `json:"id" yaml:"id"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Column returns the named column, or nil when absent.
func (t Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKeyColumns returns the table's primary key columns in
// declaration order.
func (t Table) PrimaryKeyColumns() []Column {
	var cols []Column
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			cols = append(cols, col)
		}
	}
	return cols
}

// ForeignKeyColumns returns the table's FK columns in declaration order.
func (t Table) ForeignKeyColumns() []Column {
	var cols []Column
	for _, col := range t.Columns {
		if col.IsForeignKey {
			cols = append(cols, col)
		}
	}
	return cols
}

// Schema is the immutable description of the database a query is
// composed against.
type Schema struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table returns the table with the given id, or nil when absent.
func (s *Schema) Table(id TableID) *Table {
	for i := range s.Tables {
		if s.Tables[i].ID == id {
			return &s.Tables[i]
		}
	}
	return nil
}

// TablesNamed returns every table whose bare name matches, regardless
// of schema qualifier. Used by the cross-schema join heuristic.
func (s *Schema) TablesNamed(name string) []Table {
	var tables []Table
	for _, t := range s.Tables {
		if t.ID.Name == name {
			tables = append(tables, t)
		}
	}
	return tables
}

// ResolveColumn returns the column a fully-qualified reference points
// at, or nil when either the table or the column is unknown.
func (s *Schema) ResolveColumn(ref ColumnRef) *Column {
	table := s.Table(ref.Table)
	if table == nil {
		return nil
	}
	return table.Column(ref.Column)
}

// Validate checks structural well-formedness: non-empty table names,
// unique table ids, and unique column names per table. Dangling FK
// references are tolerated; the inference engine simply never matches
// them.
func (s *Schema) Validate() error {
	seen := make(map[TableID]struct{}, len(s.Tables))
	for _, table := range s.Tables {
		if table.ID.Name == "" {
			return fmt.Errorf("table with empty name")
		}
		if _, dup := seen[table.ID]; dup {
			return fmt.Errorf("duplicate table %s", table.ID)
		}
		seen[table.ID] = struct{}{}

		cols := make(map[string]struct{}, len(table.Columns))
		for _, col := range table.Columns {
			if col.Name == "" {
				return fmt.Errorf("table %s has a column with empty name", table.ID)
			}
			if _, dup := cols[col.Name]; dup {
				return fmt.Errorf("table %s has duplicate column %s", table.ID, col.Name)
			}
			cols[col.Name] = struct{}{}
		}
	}
	return nil
}
