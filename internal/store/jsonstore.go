// Package store persists extracted records as merge-written JSON.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore merge-writes nested record maps into a single JSON file shaped
// {"issue"|"pr": {"<number>": {"<field>": <value>}}}. A run flushes several
// times, and separate runs may target the same file, so existing content is
// always preserved: new record keys are added and fields of re-extracted
// records overwrite the old values.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store writing to path, creating parent directories
// as needed.
func NewJSONStore(path string) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	return &JSONStore{path: path}, nil
}

// Path returns the output file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Merge folds records into the file under the given top-level section.
func (s *JSONStore) Merge(section string, records map[string]map[string]any) error {
	existing, err := s.load()
	if err != nil {
		return err
	}

	sec, ok := existing[section].(map[string]any)
	if !ok {
		sec = make(map[string]any)
		existing[section] = sec
	}

	for num, entry := range records {
		fields, ok := sec[num].(map[string]any)
		if !ok {
			fields = make(map[string]any)
			sec[num] = fields
		}
		for name, val := range entry {
			fields[name] = val
		}
	}

	return s.save(existing)
}

// load reads the current file content, or an empty map if the file does not
// exist yet.
func (s *JSONStore) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("read output file: %w", err)
	}

	out := make(map[string]any)
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse output file %s: %w", s.path, err)
	}
	return out, nil
}

// save writes the merged content back, indented for diffability.
func (s *JSONStore) save(content map[string]any) error {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}
