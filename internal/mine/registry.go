package mine

import (
	"context"
	"sort"
)

// IssueField extracts one named value from an issue. Extractors that reach
// back to the remote service accept the context and may return a rate-limit
// error, which the loop recovers from.
type IssueField func(ctx context.Context, r IssueRecord) (any, error)

// PullField extracts one named value from a pull request.
type PullField func(r PullRecord) any

// CommitField extracts one named value from a commit.
type CommitField func(c CommitRecord) any

// Registry maps configured field names to their extractors. It is populated
// once at process startup and never mutated afterwards; configuration
// validation receives the registered name sets as plain data.
type Registry struct {
	issue  map[string]IssueField
	pull   map[string]PullField
	commit map[string]CommitField
}

// NewRegistry builds the registry with every supported extractor.
func NewRegistry() *Registry {
	return &Registry{
		issue: map[string]IssueField{
			"issue_body":      pureIssue(extractItemBody),
			"issue_closed":    pureIssue(extractItemClosed),
			"issue_comments":  extractIssueComments,
			"issue_title":     pureIssue(extractItemTitle),
			"issue_userlogin": pureIssue(extractItemUserLogin),
			"issue_username":  pureIssue(extractItemUserName),
		},
		pull: map[string]PullField{
			"pr_body":      pullField(extractItemBody),
			"pr_closed":    pullField(extractItemClosed),
			"pr_title":     pullField(extractItemTitle),
			"pr_userlogin": pullField(extractItemUserLogin),
			"pr_username":  pullField(extractItemUserName),
		},
		commit: map[string]CommitField{
			"commit_author_name": extractCommitAuthorName,
			"committer":          extractCommitCommitter,
			"commit_date":        extractCommitDate,
			"commit_files":       extractCommitFiles,
			"commit_message":     extractCommitMessage,
			"commit_sha":         extractCommitSHA,
		},
	}
}

// pureIssue lifts a shared item extractor into an IssueField.
func pureIssue(fn func(ItemRecord) any) IssueField {
	return func(_ context.Context, r IssueRecord) (any, error) {
		return fn(r), nil
	}
}

// pullField lifts a shared item extractor into a PullField.
func pullField(fn func(ItemRecord) any) PullField {
	return func(r PullRecord) any {
		return fn(r)
	}
}

// IssueField looks up an issue extractor by name.
func (r *Registry) IssueField(name string) (IssueField, bool) {
	fn, ok := r.issue[name]
	return fn, ok
}

// PullField looks up a pull-request extractor by name.
func (r *Registry) PullField(name string) (PullField, bool) {
	fn, ok := r.pull[name]
	return fn, ok
}

// CommitField looks up a commit extractor by name.
func (r *Registry) CommitField(name string) (CommitField, bool) {
	fn, ok := r.commit[name]
	return fn, ok
}

// FieldSets holds the registered field names per record kind, sorted. It is
// handed to configuration validation so unknown names fail fast at startup.
type FieldSets struct {
	Issue  []string
	Pull   []string
	Commit []string
}

// FieldSets returns the registered names.
func (r *Registry) FieldSets() FieldSets {
	return FieldSets{
		Issue:  sortedKeys(r.issue),
		Pull:   sortedKeys(r.pull),
		Commit: sortedKeys(r.commit),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
