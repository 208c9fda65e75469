package mine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()

	t.Run("registered issue field resolves", func(t *testing.T) {
		fn, ok := reg.IssueField("issue_title")
		require.True(t, ok)

		got, err := fn(context.Background(), &fakeIssue{title: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("registered pull field resolves", func(t *testing.T) {
		fn, ok := reg.PullField("pr_userlogin")
		require.True(t, ok)
		assert.Equal(t, "dev", fn(&fakePull{}))
	})

	t.Run("registered commit field resolves", func(t *testing.T) {
		fn, ok := reg.CommitField("commit_sha")
		require.True(t, ok)
		assert.Equal(t, "abc", fn(&fakeCommit{sha: "abc"}))
	})

	t.Run("unknown names miss", func(t *testing.T) {
		_, ok := reg.IssueField("pr_title")
		assert.False(t, ok)

		_, ok = reg.PullField("issue_title")
		assert.False(t, ok)

		_, ok = reg.CommitField("commit_parent")
		assert.False(t, ok)
	})
}

func TestRegistryFieldSets(t *testing.T) {
	sets := NewRegistry().FieldSets()

	assert.Equal(t, []string{
		"issue_body", "issue_closed", "issue_comments",
		"issue_title", "issue_userlogin", "issue_username",
	}, sets.Issue)

	assert.Equal(t, []string{
		"pr_body", "pr_closed", "pr_title", "pr_userlogin", "pr_username",
	}, sets.Pull)

	assert.Equal(t, []string{
		"commit_author_name", "commit_date", "commit_files",
		"commit_message", "commit_sha", "committer",
	}, sets.Commit)
}
