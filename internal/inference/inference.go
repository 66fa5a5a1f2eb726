// Package inference proposes joins between pairs of tables from foreign
// key metadata, with a narrow cross-schema naming heuristic as a last
// resort. Results are advisory: acceptance is an explicit user action
// and re-enters the composer as an ordinary add-join mutation.
package inference

import (
	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
	"pgcomposer/internal/sqltype"
)

// Infer proposes at most one join describing how two tables relate.
// Rules are tried in order, first match wins:
//
//  1. an FK column on a referencing b
//  2. an FK column on b referencing a
//  3. identical table names in different schemas sharing a key column
//
// FK joins default to LEFT so no base row is excluded by a missing
// child; the heuristic produces INNER on the shared key. Returns nil
// when no rule matches; callers must not silently connect unrelated
// tables. Pure and deterministic: identical inputs yield identical
// proposals. The returned join carries no id; the add-join mutation
// assigns one on acceptance.
func Infer(s *schema.Schema, a, b schema.TableID) *querystate.Join {
	if s == nil || a == b {
		return nil
	}
	tableA := s.Table(a)
	tableB := s.Table(b)
	if tableA == nil || tableB == nil {
		return nil
	}

	if join := foreignKeyJoin(*tableA, *tableB); join != nil {
		return join
	}
	if join := foreignKeyJoin(*tableB, *tableA); join != nil {
		return join
	}
	return sharedKeyJoin(*tableA, *tableB)
}

// foreignKeyJoin scans from's FK columns for a reference resolving to
// to. A three-part reference must match schema and table exactly; a
// legacy two-part reference matches on table name alone.
func foreignKeyJoin(from, to schema.Table) *querystate.Join {
	for _, col := range from.Columns {
		if !col.IsForeignKey {
			continue
		}
		target, legacy, ok := col.Reference()
		if !ok {
			continue
		}
		if legacy {
			if target.Table.Name != to.ID.Name {
				continue
			}
		} else if target.Table != to.ID {
			continue
		}
		return &querystate.Join{
			FromTable:  from.ID,
			FromColumn: col.Name,
			Type:       querystate.JoinLeft,
			ToTable:    to.ID,
			ToColumn:   target.Column,
		}
	}
	return nil
}

// sharedKeyJoin handles tables replicated across logical schemas: same
// table name, different schema, joined on a shared key column. The key
// must be named "id" or be a primary key on one side, and exist on both
// sides under the same name with a compatible type, to keep false
// positives rare.
func sharedKeyJoin(a, b schema.Table) *querystate.Join {
	if a.ID.Name != b.ID.Name || a.ID.Schema == b.ID.Schema {
		return nil
	}

	for _, col := range a.Columns {
		if col.Name != "id" && !col.IsPrimaryKey {
			continue
		}
		counterpart := b.Column(col.Name)
		if counterpart == nil || !sqltype.Compatible(counterpart.DataType, col.DataType) {
			continue
		}
		return &querystate.Join{
			FromTable:  a.ID,
			FromColumn: col.Name,
			Type:       querystate.JoinInner,
			ToTable:    b.ID,
			ToColumn:   counterpart.Name,
		}
	}

	// The key may be flagged only on b's side.
	for _, col := range b.Columns {
		if !col.IsPrimaryKey {
			continue
		}
		counterpart := a.Column(col.Name)
		if counterpart == nil || !sqltype.Compatible(counterpart.DataType, col.DataType) {
			continue
		}
		return &querystate.Join{
			FromTable:  a.ID,
			FromColumn: counterpart.Name,
			Type:       querystate.JoinInner,
			ToTable:    b.ID,
			ToColumn:   col.Name,
		}
	}
	return nil
}
