package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders table ids as canonical strings in YAML documents.
func (t TableID) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML accepts canonical "schema.table" strings.
func (t *TableID) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(raw))
}

// Parse decodes a schema document. Documents produced by the schema
// generator are JSON; hand-written fixtures are usually YAML. JSON is
// detected by the leading byte so both are accepted transparently.
func Parse(data []byte) (*Schema, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	var s Schema
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode schema document: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode schema document: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return &s, nil
}

// LoadFile reads and parses a schema document from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema document: %w", err)
	}
	return Parse(data)
}
