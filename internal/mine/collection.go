package mine

import (
	"context"
	"time"
)

// Record is a single numbered item in a paginated collection. Numbers are
// unique and strictly increasing across the collection.
type Record interface {
	Number() int
}

// Page is one page of records, ordered ascending by number.
type Page []Record

// Collection is an ordered, remotely backed sequence of numbered records,
// retrievable one page at a time. Implementations must return pages sorted
// ascending by number; every page holds PageLength records except possibly
// the last.
type Collection interface {
	// PageLength returns the fixed page size used by the remote listing.
	PageLength() int

	// TotalCount returns the number of records in the collection.
	TotalCount(ctx context.Context) (int, error)

	// Page fetches the page at the given zero-based index.
	Page(ctx context.Context, index int) (Page, error)

	// Record fetches the record at the given zero-based flat position.
	Record(ctx context.Context, globalIndex int) (Record, error)
}

// ItemRecord exposes the attributes shared by issues and pull requests.
type ItemRecord interface {
	Record

	Title() string
	Body() string
	ClosedAt() (time.Time, bool)
	UserLogin() string
	UserName() string
}

// IssueRecord is an issue fetched from the remote collection.
type IssueRecord interface {
	ItemRecord

	// CommentBodies fetches the bodies of every comment on the issue.
	CommentBodies(ctx context.Context) ([]string, error)
}

// PullRecord is a pull request fetched from the remote collection.
type PullRecord interface {
	ItemRecord

	Merged() bool

	// LatestCommit fetches the most recent commit on the pull request,
	// including the list of files it touched.
	LatestCommit(ctx context.Context) (CommitRecord, error)
}

// CommitRecord is a single commit with its file changes.
type CommitRecord interface {
	SHA() string
	AuthorName() string
	CommitterName() string
	AuthoredAt() (time.Time, bool)
	Message() string
	Files() []CommitFile
}

// CommitFile describes one file touched by a commit.
type CommitFile struct {
	Filename  string
	Status    string
	Patch     string
	Additions int
	Changes   int
	Deletions int
}

// Session reports and controls the remote API quota. The extraction loop
// blocks on WaitForReset after a rate-limit signal.
type Session interface {
	// WaitForReset blocks until the remote quota is available again.
	WaitForReset(ctx context.Context) error

	// Remaining returns the number of calls left in the current window.
	Remaining() int
}

// Store persists extracted records. Merge must add new keys without
// discarding content written by earlier flushes.
type Store interface {
	Merge(section string, records map[string]map[string]any) error
}

// rateLimitSignal is implemented by session errors that indicate quota
// exhaustion rather than failure. Such errors are recovered by the loop;
// everything else is fatal.
type rateLimitSignal interface {
	RateLimited() bool
}
