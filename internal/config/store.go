// Package config loads and validates the repomine job configuration.
//
// A job file is TOML. The Store half is a schema-agnostic key/value view
// with typed lookups; Parse applies the schema, validating field names
// against the extractor registry's name sets.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Store is a flat key/value view of a TOML configuration file.
type Store struct {
	path string
	data map[string]any
}

// Load reads and parses the TOML file at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	return &Store{path: path, data: flattenMap(raw, "")}, nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// Has reports whether a key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.data[key]
	return ok
}

// GetString retrieves a string value, or "" when absent or mistyped.
func (s *Store) GetString(key string) string {
	str, _ := s.data[key].(string)
	return str
}

// GetStringSlice retrieves a string list value.
func (s *Store) GetStringSlice(key string) []string {
	switch v := s.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// GetIntSlice retrieves an integer list value.
func (s *Store) GetIntSlice(key string) []int {
	// TOML integers decode as int64.
	switch v := s.data[key].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

// flattenMap converts nested maps to dot-notation keys, so [output] file =
// "x" is reachable as "output.file".
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}
