package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/repomine/repomine/internal/mine"
)

// Recognised configuration keys.
const (
	KeyRepo         = "repo"
	KeyAuthFile     = "auth_file"
	KeyState        = "state"
	KeyRange        = "range"
	KeyIssueFields  = "issues_fields"
	KeyPRFields     = "pr_fields"
	KeyCommitFields = "commit_fields"
	KeyOutputFile   = "output_file"
	KeyOutputDir    = "output_dir"
)

// States accepted by the state filter.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Config is a fully validated mining job.
type Config struct {
	Repo         string
	AuthFile     string
	State        string
	Range        [2]int
	IssueFields  []string
	PRFields     []string
	CommitFields []string
	OutputFile   string
}

// Parse validates the store against the schema. The extractor name sets come
// from the registry as data, so an unknown field name fails here, before any
// remote call is made.
func Parse(s *Store, known mine.FieldSets) (*Config, error) {
	cfg := &Config{
		Repo:         s.GetString(KeyRepo),
		AuthFile:     s.GetString(KeyAuthFile),
		State:        s.GetString(KeyState),
		IssueFields:  s.GetStringSlice(KeyIssueFields),
		PRFields:     s.GetStringSlice(KeyPRFields),
		CommitFields: s.GetStringSlice(KeyCommitFields),
	}

	if cfg.Repo == "" || !strings.Contains(cfg.Repo, "/") {
		return nil, fmt.Errorf("config: %q must be owner/name, got %q", KeyRepo, cfg.Repo)
	}
	if cfg.AuthFile == "" {
		return nil, fmt.Errorf("config: %q is required", KeyAuthFile)
	}

	if cfg.State == "" {
		cfg.State = StateClosed
	}
	if cfg.State != StateOpen && cfg.State != StateClosed {
		return nil, fmt.Errorf("config: %q must be %q or %q, got %q", KeyState, StateOpen, StateClosed, cfg.State)
	}

	bounds := s.GetIntSlice(KeyRange)
	if len(bounds) != 2 {
		return nil, fmt.Errorf("config: %q must be a two-element list", KeyRange)
	}
	if bounds[0] < 0 || bounds[1] < 0 {
		return nil, fmt.Errorf("config: %q bounds must be non-negative", KeyRange)
	}
	// Reject inverted ranges here rather than leaving the loop to silently
	// produce no output.
	if bounds[0] > bounds[1] {
		return nil, fmt.Errorf("config: %q must be ascending, got [%d, %d]", KeyRange, bounds[0], bounds[1])
	}
	cfg.Range = [2]int{bounds[0], bounds[1]}

	if err := checkFields(KeyIssueFields, cfg.IssueFields, known.Issue); err != nil {
		return nil, err
	}
	if err := checkFields(KeyPRFields, cfg.PRFields, known.Pull); err != nil {
		return nil, err
	}
	if err := checkFields(KeyCommitFields, cfg.CommitFields, known.Commit); err != nil {
		return nil, err
	}

	outputFile, err := resolveOutput(s, cfg.Repo)
	if err != nil {
		return nil, err
	}
	cfg.OutputFile = outputFile

	return cfg, nil
}

// checkFields verifies every configured name is registered, reporting all
// unknown names at once.
func checkFields(key string, configured, known []string) error {
	var unknown []string
	for _, name := range configured {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("config: %q has unknown fields %v (known: %v)", key, unknown, known)
	}
	return nil
}

// resolveOutput determines the output file: output_file wins; with only
// output_dir the file is named after the repository.
func resolveOutput(s *Store, repo string) (string, error) {
	if file := s.GetString(KeyOutputFile); file != "" {
		return file, nil
	}
	if dir := s.GetString(KeyOutputDir); dir != "" {
		name := strings.ReplaceAll(repo, "/", "_") + ".json"
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("config: %q or %q is required", KeyOutputFile, KeyOutputDir)
}
