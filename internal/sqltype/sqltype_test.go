package sqltype

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
	}{
		{"integer", CategoryInt},
		{"BIGINT", CategoryInt},
		{"serial", CategoryInt},
		{"numeric(10,2)", CategoryFloat},
		{"double precision", CategoryFloat},
		{"boolean", CategoryBoolean},
		{"jsonb", CategoryJSON},
		{"timestamp with time zone", CategoryTime},
		{"timestamptz", CategoryTime},
		{"uuid", CategoryUUID},
		{"bytea", CategoryBytes},
		{"character varying(255)", CategoryString},
		{"varchar", CategoryString},
		{"text", CategoryString},
		{"some_custom_enum", CategoryString},
	}

	for _, tt := range tests {
		if got := Categorize(tt.input); got != tt.expected {
			t.Errorf("Categorize(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"integer", "bigint", true},
		{"varchar", "character varying(64)", true},
		{"numeric(10,2)", "double precision", true},
		{"integer", "uuid", false},
		{"text", "bytea", false},
	}

	for _, tt := range tests {
		if got := Compatible(tt.a, tt.b); got != tt.expected {
			t.Errorf("Compatible(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
		}
	}
}
