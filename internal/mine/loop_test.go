package mine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quotaErr signals rate-limit exhaustion the way session errors do.
type quotaErr struct{}

func (quotaErr) Error() string     { return "quota exhausted" }
func (quotaErr) RateLimited() bool { return true }

// fakeSession counts blocking waits.
type fakeSession struct {
	waits int
}

func (s *fakeSession) WaitForReset(context.Context) error {
	s.waits++
	return nil
}

func (s *fakeSession) Remaining() int { return 4999 }

// memStore records merge-writes in memory with the same semantics as the
// JSON store.
type memStore struct {
	sections map[string]map[string]map[string]any
	merges   int
}

func newMemStore() *memStore {
	return &memStore{sections: make(map[string]map[string]map[string]any)}
}

func (m *memStore) Merge(section string, records map[string]map[string]any) error {
	m.merges++
	sec, ok := m.sections[section]
	if !ok {
		sec = make(map[string]map[string]any)
		m.sections[section] = sec
	}
	for num, entry := range records {
		fields, ok := sec[num]
		if !ok {
			fields = make(map[string]any)
			sec[num] = fields
		}
		for k, v := range entry {
			fields[k] = v
		}
	}
	return nil
}

// fakeIssue implements IssueRecord.
type fakeIssue struct {
	num      int
	title    string
	body     string
	login    string
	comments []string
}

func (r *fakeIssue) Number() int                 { return r.num }
func (r *fakeIssue) Title() string               { return r.title }
func (r *fakeIssue) Body() string                { return r.body }
func (r *fakeIssue) UserLogin() string           { return r.login }
func (r *fakeIssue) UserName() string            { return "" }
func (r *fakeIssue) ClosedAt() (time.Time, bool) { return time.Time{}, false }

func (r *fakeIssue) CommentBodies(context.Context) ([]string, error) {
	return r.comments, nil
}

// fakeCommit implements CommitRecord.
type fakeCommit struct {
	sha   string
	files []CommitFile
}

func (c *fakeCommit) SHA() string                   { return c.sha }
func (c *fakeCommit) AuthorName() string            { return "dev" }
func (c *fakeCommit) CommitterName() string         { return "dev" }
func (c *fakeCommit) AuthoredAt() (time.Time, bool) { return time.Time{}, false }
func (c *fakeCommit) Message() string               { return "fix" }
func (c *fakeCommit) Files() []CommitFile           { return c.files }

// fakePull implements PullRecord.
type fakePull struct {
	num    int
	title  string
	merged bool
	commit *fakeCommit
}

func (r *fakePull) Number() int                 { return r.num }
func (r *fakePull) Title() string               { return r.title }
func (r *fakePull) Body() string                { return "" }
func (r *fakePull) UserLogin() string           { return "dev" }
func (r *fakePull) UserName() string            { return "" }
func (r *fakePull) ClosedAt() (time.Time, bool) { return time.Time{}, false }
func (r *fakePull) Merged() bool                { return r.merged }

func (r *fakePull) LatestCommit(context.Context) (CommitRecord, error) {
	return r.commit, nil
}

// recordCollection serves pre-built records and can fail fetches with
// scripted errors, keyed by global index.
type recordCollection struct {
	records []Record
	failAt  map[int][]error
}

func (c *recordCollection) PageLength() int { return 30 }

func (c *recordCollection) TotalCount(context.Context) (int, error) {
	return len(c.records), nil
}

func (c *recordCollection) Page(_ context.Context, index int) (Page, error) {
	start := index * 30
	end := min(start+30, len(c.records))
	return Page(c.records[start:end]), nil
}

func (c *recordCollection) Record(_ context.Context, globalIndex int) (Record, error) {
	if errs := c.failAt[globalIndex]; len(errs) > 0 {
		err := errs[0]
		c.failAt[globalIndex] = errs[1:]
		return nil, err
	}
	return c.records[globalIndex], nil
}

func issueCollection(issues ...*fakeIssue) *recordCollection {
	records := make([]Record, len(issues))
	for i, issue := range issues {
		records[i] = issue
	}
	return &recordCollection{records: records, failAt: make(map[int][]error)}
}

func pullCollection(pulls ...*fakePull) *recordCollection {
	records := make([]Record, len(pulls))
	for i, pull := range pulls {
		records[i] = pull
	}
	return &recordCollection{records: records, failAt: make(map[int][]error)}
}

func newTestLoop(session *fakeSession, st *memStore) *Loop {
	return NewLoop(NewRegistry(), session, st, zerolog.Nop())
}

func TestLoopRunIssues(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts configured fields for every index", func(t *testing.T) {
		coll := issueCollection(
			&fakeIssue{num: 1, title: "first", body: "a"},
			&fakeIssue{num: 2, title: "second", body: "b"},
			&fakeIssue{num: 4, title: "fourth", body: ""},
		)
		st := newMemStore()
		loop := newTestLoop(&fakeSession{}, st)

		err := loop.RunIssues(ctx, coll, 0, 2, []string{"issue_title", "issue_body"})

		require.NoError(t, err)
		require.Len(t, st.sections[SectionIssues], 3)
		assert.Equal(t, "first", st.sections[SectionIssues]["1"]["issue_title"])
		assert.Equal(t, "b", st.sections[SectionIssues]["2"]["issue_body"])
		// Empty body is persisted as the sentinel, not "".
		assert.Equal(t, "NaN", st.sections[SectionIssues]["4"]["issue_body"])
		assert.Equal(t, 1, st.merges)
	})

	t.Run("keys entries by record number, not index", func(t *testing.T) {
		coll := issueCollection(&fakeIssue{num: 812, title: "t"})
		st := newMemStore()
		loop := newTestLoop(&fakeSession{}, st)

		err := loop.RunIssues(ctx, coll, 0, 0, []string{"issue_title"})

		require.NoError(t, err)
		assert.Contains(t, st.sections[SectionIssues], "812")
	})

	t.Run("rate limit flushes, waits, and retries the same index", func(t *testing.T) {
		issues := []*fakeIssue{
			{num: 1, title: "first"},
			{num: 2, title: "second"},
			{num: 3, title: "third"},
		}

		interrupted := issueCollection(issues...)
		interrupted.failAt[1] = []error{quotaErr{}}
		session := &fakeSession{}
		interruptedStore := newMemStore()
		err := newTestLoop(session, interruptedStore).
			RunIssues(ctx, interrupted, 0, 2, []string{"issue_title"})
		require.NoError(t, err)

		uninterrupted := issueCollection(issues...)
		cleanStore := newMemStore()
		err = newTestLoop(&fakeSession{}, cleanStore).
			RunIssues(ctx, uninterrupted, 0, 2, []string{"issue_title"})
		require.NoError(t, err)

		// The interruption is invisible in the persisted output.
		assert.Equal(t, cleanStore.sections, interruptedStore.sections)
		assert.Equal(t, 1, session.waits)
		assert.Equal(t, 2, interruptedStore.merges)
	})

	t.Run("repeated rate limits on one index retry indefinitely", func(t *testing.T) {
		coll := issueCollection(&fakeIssue{num: 1, title: "only"})
		coll.failAt[0] = []error{quotaErr{}, quotaErr{}, quotaErr{}}
		session := &fakeSession{}
		st := newMemStore()

		err := newTestLoop(session, st).RunIssues(ctx, coll, 0, 0, []string{"issue_title"})

		require.NoError(t, err)
		assert.Equal(t, 3, session.waits)
		assert.Equal(t, "only", st.sections[SectionIssues]["1"]["issue_title"])
	})

	t.Run("non-rate-limit errors are fatal", func(t *testing.T) {
		coll := issueCollection(
			&fakeIssue{num: 1, title: "first"},
			&fakeIssue{num: 2, title: "second"},
		)
		fatal := errors.New("boom")
		coll.failAt[1] = []error{fatal}
		session := &fakeSession{}
		st := newMemStore()

		err := newTestLoop(session, st).RunIssues(ctx, coll, 0, 1, []string{"issue_title"})

		assert.ErrorIs(t, err, fatal)
		assert.Zero(t, session.waits)
		// No terminal flush happened.
		assert.Zero(t, st.merges)
	})

	t.Run("inverted range produces only the terminal flush", func(t *testing.T) {
		coll := issueCollection(&fakeIssue{num: 1})
		st := newMemStore()

		err := newTestLoop(&fakeSession{}, st).RunIssues(ctx, coll, 5, 2, []string{"issue_title"})

		require.NoError(t, err)
		assert.Empty(t, st.sections[SectionIssues])
	})
}

func TestLoopRunPulls(t *testing.T) {
	ctx := context.Background()

	prFields := []string{"pr_title"}
	commitFields := []string{"commit_sha", "commit_files"}

	t.Run("merged PR with touched files gets PR and commit fields", func(t *testing.T) {
		coll := pullCollection(&fakePull{
			num: 10, title: "feature", merged: true,
			commit: &fakeCommit{sha: "abc123", files: []CommitFile{
				{Filename: "main.go", Additions: 3, Changes: 4, Deletions: 1, Status: "modified", Patch: "@@"},
			}},
		})
		st := newMemStore()

		err := newTestLoop(&fakeSession{}, st).
			RunPulls(ctx, coll, 0, 0, prFields, commitFields, "closed")

		require.NoError(t, err)
		entry := st.sections[SectionPulls]["10"]
		require.NotNil(t, entry)
		assert.Equal(t, true, entry["merged"])
		assert.Equal(t, "feature", entry["pr_title"])
		assert.Equal(t, "abc123", entry["commit_sha"])

		files, ok := entry["commit_files"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []string{"main.go"}, files["file_list"])
		assert.Equal(t, 3, files["additions"])
	})

	t.Run("merged PR whose commit touched no files gets no commit fields", func(t *testing.T) {
		coll := pullCollection(&fakePull{
			num: 11, title: "docs", merged: true,
			commit: &fakeCommit{sha: "def456"},
		})
		st := newMemStore()

		err := newTestLoop(&fakeSession{}, st).
			RunPulls(ctx, coll, 0, 0, prFields, commitFields, "closed")

		require.NoError(t, err)
		entry := st.sections[SectionPulls]["11"]
		assert.Equal(t, "docs", entry["pr_title"])
		assert.NotContains(t, entry, "commit_sha")
		assert.NotContains(t, entry, "commit_files")
	})

	t.Run("unmerged PR under closed filter records only the merged flag", func(t *testing.T) {
		coll := pullCollection(&fakePull{num: 12, title: "wip", merged: false})
		st := newMemStore()

		err := newTestLoop(&fakeSession{}, st).
			RunPulls(ctx, coll, 0, 0, prFields, commitFields, "closed")

		require.NoError(t, err)
		entry := st.sections[SectionPulls]["12"]
		assert.Equal(t, map[string]any{"merged": false}, entry)
	})

	t.Run("open filter extracts fields from unmerged PRs too", func(t *testing.T) {
		coll := pullCollection(&fakePull{
			num: 13, title: "open pr", merged: false,
			commit: &fakeCommit{sha: "fff", files: []CommitFile{{Filename: "x.go"}}},
		})
		st := newMemStore()

		err := newTestLoop(&fakeSession{}, st).
			RunPulls(ctx, coll, 0, 0, prFields, commitFields, "open")

		require.NoError(t, err)
		entry := st.sections[SectionPulls]["13"]
		assert.Equal(t, false, entry["merged"])
		assert.Equal(t, "open pr", entry["pr_title"])
		assert.Equal(t, "fff", entry["commit_sha"])
	})

	t.Run("rate limit during PR extraction retries the same index", func(t *testing.T) {
		coll := pullCollection(
			&fakePull{num: 20, title: "a", merged: true, commit: &fakeCommit{sha: "s1"}},
			&fakePull{num: 21, title: "b", merged: true, commit: &fakeCommit{sha: "s2"}},
		)
		coll.failAt[1] = []error{quotaErr{}}
		session := &fakeSession{}
		st := newMemStore()

		err := newTestLoop(session, st).
			RunPulls(ctx, coll, 0, 1, prFields, commitFields, "closed")

		require.NoError(t, err)
		assert.Equal(t, 1, session.waits)
		require.Len(t, st.sections[SectionPulls], 2)
		assert.Equal(t, "b", st.sections[SectionPulls]["21"]["pr_title"])
	})
}
