// Package schemafilter applies allow/deny filters to loaded schemas so
// operators can hide tables and columns from the composer regardless of
// where the schema came from.
package schemafilter

import (
	"path"
	"strings"

	"pgcomposer/internal/schema"
)

// Config controls allow/deny filters for tables and columns. Patterns
// are shell globs matched case-insensitively; table patterns match both
// the bare table name and the qualified schema.table form. Column
// patterns are keyed by table name, with "*" applying to every table.
type Config struct {
	AllowTables  []string            `mapstructure:"allow_tables"`
	DenyTables   []string            `mapstructure:"deny_tables"`
	AllowColumns map[string][]string `mapstructure:"allow_columns"`
	DenyColumns  map[string][]string `mapstructure:"deny_columns"`
}

// Empty reports whether the config filters nothing.
func (c Config) Empty() bool {
	return len(c.AllowTables) == 0 && len(c.DenyTables) == 0 &&
		len(c.AllowColumns) == 0 && len(c.DenyColumns) == 0
}

// Apply filters tables and columns in place. Missing allow lists
// default to allow-all; deny rules always win. Foreign key references
// landing on filtered-out tables or columns are cleared so inference
// never proposes a join into hidden parts of the schema.
func Apply(s *schema.Schema, cfg Config) {
	if s == nil || cfg.Empty() {
		return
	}

	kept := make([]schema.Table, 0, len(s.Tables))
	for _, table := range s.Tables {
		if !tableAllowed(table.ID, cfg.AllowTables, cfg.DenyTables) {
			continue
		}
		columns := make([]schema.Column, 0, len(table.Columns))
		for _, column := range table.Columns {
			if columnAllowed(table.ID.Name, column.Name, cfg.AllowColumns, cfg.DenyColumns) {
				columns = append(columns, column)
			}
		}
		if len(columns) == 0 {
			continue
		}
		table.Columns = columns
		kept = append(kept, table)
	}
	s.Tables = kept

	clearDanglingReferences(s)
}

// clearDanglingReferences strips FK metadata whose target no longer
// resolves within the filtered schema.
func clearDanglingReferences(s *schema.Schema) {
	for ti := range s.Tables {
		for ci := range s.Tables[ti].Columns {
			column := &s.Tables[ti].Columns[ci]
			if !column.IsForeignKey {
				continue
			}
			target, legacy, ok := column.Reference()
			if ok && referenceResolves(s, target, legacy) {
				continue
			}
			column.IsForeignKey = false
			column.References = ""
		}
	}
}

func referenceResolves(s *schema.Schema, target schema.ColumnRef, legacy bool) bool {
	if legacy {
		for _, table := range s.TablesNamed(target.Table.Name) {
			if table.Column(target.Column) != nil {
				return true
			}
		}
		return false
	}
	return s.ResolveColumn(target) != nil
}

func tableAllowed(id schema.TableID, allow, deny []string) bool {
	if matchesAny(id.Name, deny) || matchesAny(id.String(), deny) {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return matchesAny(id.Name, allow) || matchesAny(id.String(), allow)
}

func columnAllowed(table, column string, allow, deny map[string][]string) bool {
	if matchesAny(column, mergePatterns(deny, table)) {
		return false
	}
	allowPatterns := mergePatterns(allow, table)
	if len(allowPatterns) == 0 {
		return true
	}
	return matchesAny(column, allowPatterns)
}

// mergePatterns combines the wildcard and per-table pattern lists,
// dropping duplicates while preserving order.
func mergePatterns(patterns map[string][]string, table string) []string {
	if patterns == nil {
		return nil
	}
	var merged []string
	seen := make(map[string]struct{}, len(patterns["*"])+len(patterns[table]))
	for _, key := range []string{"*", table} {
		for _, pattern := range patterns[key] {
			if _, ok := seen[pattern]; ok {
				continue
			}
			seen[pattern] = struct{}{}
			merged = append(merged, pattern)
		}
	}
	return merged
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// matching should be case-insensitive
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
