package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTOML writes content to a temp file and loads it.
func loadTOML(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	return s
}

func TestStoreLoad(t *testing.T) {
	t.Run("missing file errors", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("invalid TOML errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("repo = ="), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("empty file yields an empty store", func(t *testing.T) {
		s := loadTOML(t, "")
		assert.False(t, s.Has("repo"))
	})
}

func TestStoreGetters(t *testing.T) {
	s := loadTOML(t, `
repo = "octo/hello"
range = [1, 200]
issues_fields = ["issue_title", "issue_body"]

[output]
dir = "data"
`)

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "octo/hello", s.GetString("repo"))
		assert.Equal(t, "", s.GetString("missing"))
	})

	t.Run("int slice decodes TOML integers", func(t *testing.T) {
		assert.Equal(t, []int{1, 200}, s.GetIntSlice("range"))
		assert.Nil(t, s.GetIntSlice("missing"))
	})

	t.Run("string slice", func(t *testing.T) {
		assert.Equal(t, []string{"issue_title", "issue_body"}, s.GetStringSlice("issues_fields"))
		assert.Nil(t, s.GetStringSlice("missing"))
	})

	t.Run("nested tables flatten to dot keys", func(t *testing.T) {
		assert.True(t, s.Has("output.dir"))
		assert.Equal(t, "data", s.GetString("output.dir"))
	})

	t.Run("mistyped lookup is zero-valued", func(t *testing.T) {
		assert.Equal(t, "", s.GetString("range"))
		assert.Nil(t, s.GetIntSlice("repo"))
	})
}
