// Package exprcheck validates calculated-column formulas before they are
// accepted into query state. The checks are intentionally shallow: this
// is not a SQL grammar parser, it exists to catch the common authoring
// mistakes (empty input, unbalanced parentheses) that would otherwise
// corrupt compiled SQL. Balanced-but-invalid expressions are only caught
// later by the downstream SQL engine.
package exprcheck

import (
	"fmt"
	"strings"
)

// ValidationError describes a rejected calculated-column formula.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid expression: " + e.Reason
}

// Validate checks a calculated-column alias and expression, in order:
// alias non-empty, expression non-empty, parenthesis balance.
func Validate(alias, expression string) error {
	if strings.TrimSpace(alias) == "" {
		return &ValidationError{Reason: "alias must not be empty"}
	}
	if strings.TrimSpace(expression) == "" {
		return &ValidationError{Reason: "expression must not be empty"}
	}

	opening := strings.Count(expression, "(")
	closing := strings.Count(expression, ")")
	if opening != closing {
		return &ValidationError{Reason: fmt.Sprintf(
			"unbalanced parentheses: %d opening, %d closing", opening, closing,
		)}
	}
	return nil
}
