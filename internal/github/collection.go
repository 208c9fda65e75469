package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v80/github"

	"github.com/repomine/repomine/internal/metrics"
	"github.com/repomine/repomine/internal/mine"
)

// DefaultPageLength is the REST list page size. Every page holds this many
// records except possibly the last; the resolvers depend on that invariant.
const DefaultPageLength = 30

// Listings are ordered by creation, which for issues and pull requests is
// ascending number order.
const (
	sortCreated  = "created"
	directionAsc = "asc"
)

// pageFetch retrieves one page of records. pageNum is the API's one-based
// page number.
type pageFetch func(ctx context.Context, pageNum int) (mine.Page, *gh.Response, error)

// collection adapts a paged GitHub listing to mine.Collection. Access is
// strictly sequential, so a one-page cache is enough to keep the extraction
// loop from refetching the current page for every record.
type collection struct {
	fetch pageFetch

	total       int
	hasTotal    bool
	cached      mine.Page
	cachedIndex int
}

func (c *collection) PageLength() int { return DefaultPageLength }

// TotalCount derives the collection size from the Link header: the last page
// number times the page length, plus the items actually on the last page.
func (c *collection) TotalCount(ctx context.Context) (int, error) {
	if c.hasTotal {
		return c.total, nil
	}

	first, resp, err := c.fetch(ctx, 1)
	if err != nil {
		return 0, err
	}
	c.cache(0, first)

	if resp.LastPage == 0 {
		// Single page: no Link header.
		c.total = len(first)
	} else {
		last, _, err := c.fetch(ctx, resp.LastPage)
		if err != nil {
			return 0, err
		}
		c.cache(resp.LastPage-1, last)
		c.total = (resp.LastPage-1)*DefaultPageLength + len(last)
	}

	c.hasTotal = true
	return c.total, nil
}

// Page fetches the page at the given zero-based index.
func (c *collection) Page(ctx context.Context, index int) (mine.Page, error) {
	if c.cached != nil && c.cachedIndex == index {
		return c.cached, nil
	}

	page, _, err := c.fetch(ctx, index+1)
	if err != nil {
		return nil, err
	}
	c.cache(index, page)
	return page, nil
}

// Record fetches the record at the given zero-based flat position.
func (c *collection) Record(ctx context.Context, globalIndex int) (mine.Record, error) {
	pageIndex := globalIndex / DefaultPageLength
	offset := globalIndex % DefaultPageLength

	page, err := c.Page(ctx, pageIndex)
	if err != nil {
		return nil, err
	}
	if offset >= len(page) {
		return nil, fmt.Errorf("github: index %d beyond page %d (%d items)", globalIndex, pageIndex, len(page))
	}
	return page[offset], nil
}

func (c *collection) cache(index int, page mine.Page) {
	c.cached = page
	c.cachedIndex = index
}

// Issues returns the repository's issue collection, ascending by number and
// filtered by state. The listing includes pull requests, which share the
// repository's number sequence; they are mined separately via Pulls.
func (s *Session) Issues(state string) mine.Collection {
	return &collection{fetch: func(ctx context.Context, pageNum int) (mine.Page, *gh.Response, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		opts := &gh.IssueListByRepoOptions{
			State:     state,
			Sort:      sortCreated,
			Direction: directionAsc,
			ListOptions: gh.ListOptions{
				Page:    pageNum,
				PerPage: DefaultPageLength,
			},
		}

		issues, resp, err := s.gh.Issues.ListByRepo(ctx, s.owner, s.repo, opts)
		metrics.APIRequests.WithLabelValues("list_issues").Inc()
		s.update(resp)
		if err != nil {
			return nil, nil, s.wrapError(err, "list issues")
		}

		page := make(mine.Page, len(issues))
		for i, issue := range issues {
			page[i] = &issueRecord{s: s, issue: issue}
		}
		return page, resp, nil
	}}
}

// Pulls returns the repository's pull-request collection, ascending by
// number and filtered by state.
func (s *Session) Pulls(state string) mine.Collection {
	return &collection{fetch: func(ctx context.Context, pageNum int) (mine.Page, *gh.Response, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		opts := &gh.PullRequestListOptions{
			State:     state,
			Sort:      sortCreated,
			Direction: directionAsc,
			ListOptions: gh.ListOptions{
				Page:    pageNum,
				PerPage: DefaultPageLength,
			},
		}

		pulls, resp, err := s.gh.PullRequests.List(ctx, s.owner, s.repo, opts)
		metrics.APIRequests.WithLabelValues("list_pulls").Inc()
		s.update(resp)
		if err != nil {
			return nil, nil, s.wrapError(err, "list pull requests")
		}

		page := make(mine.Page, len(pulls))
		for i, pull := range pulls {
			page[i] = &pullRecord{s: s, pull: pull}
		}
		return page, resp, nil
	}}
}
