package github

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/repomine/repomine/internal/metrics"
	"github.com/repomine/repomine/internal/mine"
)

// Interface checks for the record views consumed by the extraction loop.
var (
	_ mine.IssueRecord  = (*issueRecord)(nil)
	_ mine.PullRecord   = (*pullRecord)(nil)
	_ mine.CommitRecord = (*commitRecord)(nil)
)

// issueRecord adapts a listed issue to mine.IssueRecord.
type issueRecord struct {
	s     *Session
	issue *gh.Issue
}

func (r *issueRecord) Number() int       { return r.issue.GetNumber() }
func (r *issueRecord) Title() string     { return r.issue.GetTitle() }
func (r *issueRecord) Body() string      { return r.issue.GetBody() }
func (r *issueRecord) UserLogin() string { return r.issue.GetUser().GetLogin() }
func (r *issueRecord) UserName() string  { return r.issue.GetUser().GetName() }

func (r *issueRecord) ClosedAt() (time.Time, bool) {
	if r.issue.ClosedAt == nil {
		return time.Time{}, false
	}
	return r.issue.ClosedAt.Time, true
}

// CommentBodies fetches the body of every comment on the issue.
func (r *issueRecord) CommentBodies(ctx context.Context) ([]string, error) {
	s := r.s
	var bodies []string

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: DefaultPageLength},
	}

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		comments, resp, err := s.gh.Issues.ListComments(ctx, s.owner, s.repo, r.Number(), opts)
		metrics.APIRequests.WithLabelValues("list_comments").Inc()
		s.update(resp)
		if err != nil {
			return nil, s.wrapError(err, "list comments")
		}

		for _, c := range comments {
			bodies = append(bodies, c.GetBody())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return bodies, nil
}

// pullRecord adapts a listed pull request to mine.PullRecord.
type pullRecord struct {
	s    *Session
	pull *gh.PullRequest
}

func (r *pullRecord) Number() int       { return r.pull.GetNumber() }
func (r *pullRecord) Title() string     { return r.pull.GetTitle() }
func (r *pullRecord) Body() string      { return r.pull.GetBody() }
func (r *pullRecord) UserLogin() string { return r.pull.GetUser().GetLogin() }
func (r *pullRecord) UserName() string  { return r.pull.GetUser().GetName() }

func (r *pullRecord) ClosedAt() (time.Time, bool) {
	if r.pull.ClosedAt == nil {
		return time.Time{}, false
	}
	return r.pull.ClosedAt.Time, true
}

// Merged reports whether the PR was merged. List responses omit the merged
// flag but always carry merged_at, so that is the authoritative signal.
func (r *pullRecord) Merged() bool {
	return r.pull.MergedAt != nil
}

// LatestCommit fetches the most recent commit on the pull request. The
// commit listing omits file changes, so the commit is refetched individually
// to get them.
func (r *pullRecord) LatestCommit(ctx context.Context) (mine.CommitRecord, error) {
	s := r.s

	opts := &gh.ListOptions{PerPage: DefaultPageLength}

	commits, resp, err := r.listCommits(ctx, opts)
	if err != nil {
		return nil, err
	}
	if resp.LastPage > 0 {
		opts.Page = resp.LastPage
		commits, _, err = r.listCommits(ctx, opts)
		if err != nil {
			return nil, err
		}
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("github: pull request #%d has no commits", r.Number())
	}

	sha := commits[len(commits)-1].GetSHA()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	full, resp2, err := s.gh.Repositories.GetCommit(ctx, s.owner, s.repo, sha, nil)
	metrics.APIRequests.WithLabelValues("get_commit").Inc()
	s.update(resp2)
	if err != nil {
		return nil, s.wrapError(err, "get commit")
	}

	return &commitRecord{commit: full}, nil
}

func (r *pullRecord) listCommits(ctx context.Context, opts *gh.ListOptions) ([]*gh.RepositoryCommit, *gh.Response, error) {
	s := r.s

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	commits, resp, err := s.gh.PullRequests.ListCommits(ctx, s.owner, s.repo, r.Number(), opts)
	metrics.APIRequests.WithLabelValues("list_pull_commits").Inc()
	s.update(resp)
	if err != nil {
		return nil, nil, s.wrapError(err, "list pull request commits")
	}
	return commits, resp, nil
}

// commitRecord adapts a fully fetched commit to mine.CommitRecord.
type commitRecord struct {
	commit *gh.RepositoryCommit
}

func (c *commitRecord) SHA() string           { return c.commit.GetSHA() }
func (c *commitRecord) AuthorName() string    { return c.commit.GetCommit().GetAuthor().GetName() }
func (c *commitRecord) CommitterName() string { return c.commit.GetCommit().GetCommitter().GetName() }
func (c *commitRecord) Message() string       { return c.commit.GetCommit().GetMessage() }

func (c *commitRecord) AuthoredAt() (time.Time, bool) {
	author := c.commit.GetCommit().GetAuthor()
	if author == nil || author.Date == nil {
		return time.Time{}, false
	}
	return author.Date.Time, true
}

func (c *commitRecord) Files() []mine.CommitFile {
	files := make([]mine.CommitFile, len(c.commit.Files))
	for i, f := range c.commit.Files {
		files[i] = mine.CommitFile{
			Filename:  f.GetFilename(),
			Status:    f.GetStatus(),
			Patch:     f.GetPatch(),
			Additions: f.GetAdditions(),
			Changes:   f.GetChanges(),
			Deletions: f.GetDeletions(),
		}
	}
	return files
}
