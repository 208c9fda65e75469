package github

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadTokenFile returns the personal access token stored at path: the first
// non-empty line, trimmed.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read auth file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if token := strings.TrimSpace(line); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("auth file %s contains no token", path)
}

// WriteTokenFile stores a token at path with owner-only permissions,
// creating parent directories as needed.
func WriteTokenFile(path, token string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create auth dir: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return nil
}
