// Package sqlutil provides SQL literal rendering helpers.
package sqlutil

import "strings"

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}

// IsNamedParameter reports whether a filter value is a named bind
// parameter (":name"), which is emitted verbatim for downstream binding.
func IsNamedParameter(s string) bool {
	return len(s) > 1 && s[0] == ':'
}

// LooksNumeric reports whether a value can pass into SQL unquoted as a
// numeric literal (optional sign, digits, optional single decimal point).
func LooksNumeric(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	digits := 0
	dots := 0
	for ; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// Literal renders a raw filter value as a SQL literal: named parameters
// and numeric-looking values pass through untouched, everything else is
// quoted as a string.
func Literal(s string) string {
	if IsNamedParameter(s) || LooksNumeric(s) {
		return s
	}
	return QuoteString(s)
}
