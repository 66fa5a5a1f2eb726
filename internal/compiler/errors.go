package compiler

import "fmt"

// EmptySelectionError reports compilation with no selected tables, the
// only input for which the compiler produces no SQL at all.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "no tables selected"
}

// StructuralError reports a dangling reference: a join, filter, column,
// grouping, or ordering entry pointing at something outside the current
// selection (or a table the schema does not know).
type StructuralError struct {
	Ref    string
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %s %s", e.Ref, e.Detail)
}

// ConsistencyError reports a rule violation among otherwise well-formed
// references, such as a non-aggregated selected column missing from
// GROUP BY, a missing row cap, or an unjoined extra table.
type ConsistencyError struct {
	Subject string
	Reason  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent query: %s %s", e.Subject, e.Reason)
}
