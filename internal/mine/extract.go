package mine

import (
	"context"
	"strings"
	"time"
)

// timeFormat is the layout used for every extracted timestamp, kept
// compatible with consumers of earlier mined datasets.
const timeFormat = "01/02/06, 03:04:05 PM"

// emptySentinel marks empty or missing text fields. Downstream consumers
// expect the literal string rather than null or "".
const emptySentinel = "NaN"

// commentSeparator joins the bodies of an issue's comments into one field.
const commentSeparator = " =||= "

// cleanString strips carriage returns, newlines, and surrounding whitespace.
// Empty or all-whitespace input becomes the empty-value sentinel.
func cleanString(s string) string {
	if s == "" {
		return emptySentinel
	}

	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return emptySentinel
	}
	return s
}

// formatTime renders a timestamp, or the sentinel when the time is absent.
func formatTime(t time.Time, ok bool) string {
	if !ok {
		return emptySentinel
	}
	return t.Format(timeFormat)
}

func extractItemBody(r ItemRecord) any   { return cleanString(r.Body()) }
func extractItemTitle(r ItemRecord) any  { return r.Title() }
func extractItemClosed(r ItemRecord) any { return formatTime(r.ClosedAt()) }

func extractItemUserLogin(r ItemRecord) any { return cleanString(r.UserLogin()) }
func extractItemUserName(r ItemRecord) any  { return cleanString(r.UserName()) }

// extractIssueComments collects every comment body on the issue into a single
// delimiter-separated string. Fetching comments is a remote call, so this
// extractor can surface a rate-limit error.
func extractIssueComments(ctx context.Context, r IssueRecord) (any, error) {
	bodies, err := r.CommentBodies(ctx)
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return emptySentinel, nil
	}

	trimmed := make([]string, len(bodies))
	for i, b := range bodies {
		trimmed[i] = strings.TrimSpace(b)
	}
	return cleanString(strings.Join(trimmed, commentSeparator)), nil
}

func extractCommitAuthorName(c CommitRecord) any { return c.AuthorName() }
func extractCommitCommitter(c CommitRecord) any  { return c.CommitterName() }
func extractCommitDate(c CommitRecord) any       { return formatTime(c.AuthoredAt()) }
func extractCommitMessage(c CommitRecord) any    { return cleanString(c.Message()) }
func extractCommitSHA(c CommitRecord) any        { return c.SHA() }

// extractCommitFiles aggregates the commit's file changes: the file names,
// summed line counts, and the concatenated patch and status texts.
func extractCommitFiles(c CommitRecord) any {
	var (
		names     = []string{}
		additions int
		changes   int
		removals  int
		patch     strings.Builder
		status    strings.Builder
	)

	for _, f := range c.Files() {
		names = append(names, f.Filename)
		additions += f.Additions
		changes += f.Changes
		removals += f.Deletions
		patch.WriteString(f.Patch + ", ")
		status.WriteString(f.Status + ", ")
	}

	return map[string]any{
		"file_list":  names,
		"additions":  additions,
		"changes":    changes,
		"removals":   removals,
		"patch_text": cleanString(patch.String()),
		"status":     cleanString(`"` + status.String() + `"`),
	}
}
