// Package sqltype classifies PostgreSQL data types into broad categories
// so type compatibility checks are insensitive to spelling variants like
// "varchar" versus "character varying".
package sqltype

import "strings"

// Category is the broad family a SQL data type belongs to.
type Category int

const (
	// CategoryString is the default for text and unrecognized types.
	CategoryString Category = iota
	// CategoryInt covers integer types including serials.
	CategoryInt
	// CategoryFloat covers floating-point and fixed-point numerics.
	CategoryFloat
	// CategoryBoolean covers boolean types.
	CategoryBoolean
	// CategoryJSON covers json and jsonb.
	CategoryJSON
	// CategoryTime covers dates, times, timestamps, and intervals.
	CategoryTime
	// CategoryUUID covers the uuid type.
	CategoryUUID
	// CategoryBytes covers bytea.
	CategoryBytes
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryInt:
		return "integer"
	case CategoryFloat:
		return "float"
	case CategoryBoolean:
		return "boolean"
	case CategoryJSON:
		return "json"
	case CategoryTime:
		return "time"
	case CategoryUUID:
		return "uuid"
	case CategoryBytes:
		return "bytes"
	default:
		return "string"
	}
}

// Categorize maps a PostgreSQL data type string to its category. The
// input is case-insensitive and size specifiers like (10,2) or (255)
// are stripped before matching, so both information_schema data_type
// values and hand-written document types resolve the same way.
func Categorize(dataType string) Category {
	if idx := strings.Index(dataType, "("); idx != -1 {
		dataType = dataType[:idx]
	}
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "smallint", "integer", "int", "int2", "int4", "int8", "bigint",
		"smallserial", "serial", "bigserial":
		return CategoryInt
	case "real", "double precision", "float4", "float8",
		"numeric", "decimal", "money":
		return CategoryFloat
	case "boolean", "bool":
		return CategoryBoolean
	case "json", "jsonb":
		return CategoryJSON
	case "date", "time", "timetz", "timestamp", "timestamptz",
		"time with time zone", "time without time zone",
		"timestamp with time zone", "timestamp without time zone",
		"interval":
		return CategoryTime
	case "uuid":
		return CategoryUUID
	case "bytea":
		return CategoryBytes
	default:
		return CategoryString
	}
}

// Compatible reports whether two data types fall in the same category
// and may plausibly hold the same key values.
func Compatible(a, b string) bool {
	return Categorize(a) == Categorize(b)
}
