package inference

import (
	"pgcomposer/internal/querystate"
	"pgcomposer/internal/schema"
)

// InferPath proposes a join sequence connecting a to b. A direct
// relationship yields a single join; otherwise the schema is scanned
// for a junction table whose two foreign keys land on a and b, and the
// two-hop path through it is proposed. Returns nil when neither rule
// applies. Like Infer, the proposal is advisory and carries no join ids.
func InferPath(s *schema.Schema, a, b schema.TableID) []querystate.Join {
	if direct := Infer(s, a, b); direct != nil {
		return []querystate.Join{*direct}
	}
	if s == nil {
		return nil
	}
	tableA := s.Table(a)
	tableB := s.Table(b)
	if tableA == nil || tableB == nil {
		return nil
	}

	for _, candidate := range s.Tables {
		if candidate.ID == a || candidate.ID == b {
			continue
		}
		toA, toB, ok := junctionKeys(candidate, *tableA, *tableB)
		if !ok {
			continue
		}
		return []querystate.Join{
			{
				FromTable:  a,
				FromColumn: toA.target.Column,
				Type:       querystate.JoinLeft,
				ToTable:    candidate.ID,
				ToColumn:   toA.column,
			},
			{
				FromTable:  candidate.ID,
				FromColumn: toB.column,
				Type:       querystate.JoinLeft,
				ToTable:    b,
				ToColumn:   toB.target.Column,
			},
		}
	}
	return nil
}

type junctionKey struct {
	column string
	target schema.ColumnRef
}

// junctionKeys reports whether candidate links a and b: it must carry
// exactly two foreign key columns, one resolving to each endpoint, and
// the table's primary key must cover both so a row pairs the endpoints
// at most once. Extra attribute columns are fine.
func junctionKeys(candidate, a, b schema.Table) (junctionKey, junctionKey, bool) {
	var none junctionKey

	var fks []junctionKey
	for _, col := range candidate.Columns {
		if !col.IsForeignKey {
			continue
		}
		target, _, ok := col.Reference()
		if !ok {
			continue
		}
		fks = append(fks, junctionKey{column: col.Name, target: target})
		if len(fks) > 2 {
			return none, none, false
		}
	}
	if len(fks) != 2 {
		return none, none, false
	}

	pk := make(map[string]struct{})
	for _, col := range candidate.Columns {
		if col.IsPrimaryKey {
			pk[col.Name] = struct{}{}
		}
	}
	for _, fk := range fks {
		if _, ok := pk[fk.column]; !ok {
			return none, none, false
		}
	}

	switch {
	case targets(fks[0], a) && targets(fks[1], b):
		return fks[0], fks[1], true
	case targets(fks[0], b) && targets(fks[1], a):
		return fks[1], fks[0], true
	}
	return none, none, false
}

// targets matches on the full table id, falling back to bare-name
// matching for legacy two-part references.
func targets(fk junctionKey, t schema.Table) bool {
	return fk.target.Table == t.ID || fk.target.Table.Name == t.ID.Name
}
