package github

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.txt")

		require.NoError(t, WriteTokenFile(path, "ghp_secret"))

		token, err := ReadTokenFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ghp_secret", token)
	})

	t.Run("written file is owner-only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.txt")
		require.NoError(t, WriteTokenFile(path, "ghp_secret"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "auth", "token.txt")
		require.NoError(t, WriteTokenFile(path, "ghp_secret"))
		assert.FileExists(t, path)
	})

	t.Run("skips leading blank lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.txt")
		require.NoError(t, os.WriteFile(path, []byte("\n\n  ghp_secret  \n"), 0600))

		token, err := ReadTokenFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ghp_secret", token)
	})

	t.Run("empty file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n\n"), 0600))

		_, err := ReadTokenFile(path)
		assert.ErrorContains(t, err, "no token")
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := ReadTokenFile(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}
