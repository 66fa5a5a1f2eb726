package schema

import (
	"fmt"
	"strings"
)

// DefaultSchema is assumed whenever a table or column reference omits
// its schema qualifier.
const DefaultSchema = "public"

// TableID identifies a table by schema and name. The canonical string
// form is "schema.table".
type TableID struct {
	Schema string
	Name   string
}

// NewTableID builds a TableID, applying the default schema when empty.
func NewTableID(schemaName, tableName string) TableID {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return TableID{Schema: schemaName, Name: tableName}
}

// ParseTableID parses "schema.table" or bare "table" (default schema).
func ParseTableID(s string) (TableID, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return TableID{}, fmt.Errorf("empty table identifier")
		}
		return NewTableID("", parts[0]), nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return TableID{}, fmt.Errorf("invalid table identifier %q", s)
		}
		return TableID{Schema: parts[0], Name: parts[1]}, nil
	default:
		return TableID{}, fmt.Errorf("invalid table identifier %q", s)
	}
}

// String renders the canonical "schema.table" form.
func (t TableID) String() string {
	return t.Schema + "." + t.Name
}

// IsZero reports whether the id is unset.
func (t TableID) IsZero() bool {
	return t.Schema == "" && t.Name == ""
}

// MarshalText implements encoding.TextMarshaler so table ids serialize
// as canonical strings in JSON documents.
func (t TableID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TableID) UnmarshalText(text []byte) error {
	parsed, err := ParseTableID(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ColumnRef is a fully-qualified column identifier: "schema.table.column".
// It is the sole column identifier used in query state so that
// same-named columns on different tables never collide.
type ColumnRef struct {
	Table  TableID
	Column string
}

// NewColumnRef builds a ColumnRef for a column on a table.
func NewColumnRef(table TableID, column string) ColumnRef {
	return ColumnRef{Table: table, Column: column}
}

// ParseColumnRef parses "schema.table.column" or the legacy two-part
// "table.column" form (default schema).
func ParseColumnRef(s string) (ColumnRef, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return ColumnRef{}, fmt.Errorf("invalid column reference %q", s)
		}
		return ColumnRef{Table: NewTableID("", parts[0]), Column: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return ColumnRef{}, fmt.Errorf("invalid column reference %q", s)
		}
		return ColumnRef{Table: TableID{Schema: parts[0], Name: parts[1]}, Column: parts[2]}, nil
	default:
		return ColumnRef{}, fmt.Errorf("invalid column reference %q", s)
	}
}

// String renders the canonical "schema.table.column" form.
func (c ColumnRef) String() string {
	return c.Table.String() + "." + c.Column
}

// IsZero reports whether the reference is unset.
func (c ColumnRef) IsZero() bool {
	return c.Table.IsZero() && c.Column == ""
}

// MarshalText implements encoding.TextMarshaler. Because ColumnRef is
// text-marshalable it can also serve as a JSON map key.
func (c ColumnRef) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ColumnRef) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnRef(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
