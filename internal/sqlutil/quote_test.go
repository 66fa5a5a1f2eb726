package sqlutil

import "testing"

func TestQuoteString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple string", "hello", "'hello'"},
		{"embedded quote", "it's", "'it''s'"},
		{"empty string", "", "''"},
		{"multiple quotes", "a'b'c", "'a''b''c'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteString(tt.input); got != tt.expected {
				t.Errorf("QuoteString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLooksNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"42", true},
		{"-7", true},
		{"+3.14", true},
		{"0.5", true},
		{".", false},
		{"1.2.3", false},
		{"", false},
		{"abc", false},
		{"12abc", false},
		{"-", false},
	}

	for _, tt := range tests {
		if got := LooksNumeric(tt.input); got != tt.expected {
			t.Errorf("LooksNumeric(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"42", "42"},
		{":min_amount", ":min_amount"},
		{"active", "'active'"},
		{"o'brien", "'o''brien'"},
		{":", "':'"},
	}

	for _, tt := range tests {
		if got := Literal(tt.input); got != tt.expected {
			t.Errorf("Literal(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
