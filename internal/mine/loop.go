package mine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/repomine/repomine/internal/metrics"
)

// Output sections keyed at the top level of the persisted file.
const (
	SectionIssues = "issue"
	SectionPulls  = "pr"
)

// mergedKey is always present on a pull-request entry, whether or not the PR
// qualified for full field extraction.
const mergedKey = "merged"

// StateOpen is the state filter value that extends full extraction to
// unmerged pull requests.
const StateOpen = "open"

// Loop walks a resolved index range, extracting configured fields from each
// record and merge-writing them to the store. It owns the accumulator for the
// duration of a run and is strictly sequential.
type Loop struct {
	registry *Registry
	session  Session
	store    Store
	log      zerolog.Logger
}

// NewLoop assembles an extraction loop.
func NewLoop(registry *Registry, session Session, store Store, log zerolog.Logger) *Loop {
	return &Loop{
		registry: registry,
		session:  session,
		store:    store,
		log:      log,
	}
}

// RunIssues extracts the configured issue fields from every record in
// [start, end]. A rate-limit signal flushes the accumulator, blocks until the
// quota resets, and retries the same index; any other error aborts the run,
// leaving earlier flushes on disk.
func (l *Loop) RunIssues(ctx context.Context, coll Collection, start, end int, fields []string) error {
	acc := newAccumulator()

	for i := start; i <= end; {
		key, entry, err := l.extractIssue(ctx, coll, i, fields)
		if err != nil {
			if err := l.recover(ctx, SectionIssues, acc, err); err != nil {
				return err
			}
			continue
		}

		acc.add(key, entry)
		metrics.RecordsExtracted.WithLabelValues("issue").Inc()
		l.log.Debug().
			Str("number", key).
			Int("index", i).
			Int("calls_remaining", l.session.Remaining()).
			Msg("issue extracted")
		i++
	}

	return l.flush(SectionIssues, acc)
}

// RunPulls extracts pull-request and commit fields from every record in
// [start, end]. Every entry records the merged flag; PR fields are extracted
// only for merged PRs, or for all PRs when the state filter is open, and
// commit fields only when the PR's latest commit touched at least one file.
func (l *Loop) RunPulls(
	ctx context.Context, coll Collection, start, end int,
	prFields, commitFields []string, state string,
) error {
	acc := newAccumulator()

	for i := start; i <= end; {
		key, entry, err := l.extractPull(ctx, coll, i, prFields, commitFields, state)
		if err != nil {
			if err := l.recover(ctx, SectionPulls, acc, err); err != nil {
				return err
			}
			continue
		}

		acc.add(key, entry)
		metrics.RecordsExtracted.WithLabelValues("pr").Inc()
		l.log.Debug().
			Str("number", key).
			Int("index", i).
			Int("calls_remaining", l.session.Remaining()).
			Msg("pull request extracted")
		i++
	}

	return l.flush(SectionPulls, acc)
}

// extractIssue builds the accumulator entry for the issue at index i. The
// entry is returned rather than merged so a failed extraction leaves the
// accumulator untouched.
func (l *Loop) extractIssue(
	ctx context.Context, coll Collection, i int, fields []string,
) (string, map[string]any, error) {
	rec, err := coll.Record(ctx, i)
	if err != nil {
		return "", nil, err
	}

	issue, ok := rec.(IssueRecord)
	if !ok {
		return "", nil, fmt.Errorf("record #%d at index %d is not an issue", rec.Number(), i)
	}

	entry := make(map[string]any, len(fields))
	for _, name := range fields {
		fn, ok := l.registry.IssueField(name)
		if !ok {
			return "", nil, fmt.Errorf("unknown issue field %q", name)
		}
		val, err := fn(ctx, issue)
		if err != nil {
			return "", nil, err
		}
		entry[name] = val
	}

	return strconv.Itoa(rec.Number()), entry, nil
}

// extractPull builds the accumulator entry for the pull request at index i.
func (l *Loop) extractPull(
	ctx context.Context, coll Collection, i int,
	prFields, commitFields []string, state string,
) (string, map[string]any, error) {
	rec, err := coll.Record(ctx, i)
	if err != nil {
		return "", nil, err
	}

	pull, ok := rec.(PullRecord)
	if !ok {
		return "", nil, fmt.Errorf("record #%d at index %d is not a pull request", rec.Number(), i)
	}

	entry := map[string]any{mergedKey: pull.Merged()}

	if pull.Merged() || state == StateOpen {
		for _, name := range prFields {
			fn, ok := l.registry.PullField(name)
			if !ok {
				return "", nil, fmt.Errorf("unknown pr field %q", name)
			}
			entry[name] = fn(pull)
		}

		commit, err := pull.LatestCommit(ctx)
		if err != nil {
			return "", nil, err
		}

		if len(commit.Files()) > 0 {
			for _, name := range commitFields {
				fn, ok := l.registry.CommitField(name)
				if !ok {
					return "", nil, fmt.Errorf("unknown commit field %q", name)
				}
				entry[name] = fn(commit)
			}
		}
	}

	return strconv.Itoa(rec.Number()), entry, nil
}

// recover handles an extraction failure. A rate-limit signal triggers the
// flush-and-wait transition and reports success so the caller retries the
// same index; every other error is returned unchanged.
func (l *Loop) recover(ctx context.Context, section string, acc *accumulator, cause error) error {
	var limited rateLimitSignal
	if !errors.As(cause, &limited) {
		return cause
	}

	if err := l.flush(section, acc); err != nil {
		return err
	}

	l.log.Warn().
		Int("calls_remaining", l.session.Remaining()).
		Msg("rate limit exhausted, waiting for quota reset")
	metrics.RateLimitWaits.Inc()

	if err := l.session.WaitForReset(ctx); err != nil {
		return fmt.Errorf("wait for rate limit reset: %w", err)
	}
	return nil
}

// flush merge-writes the accumulator to the store and clears it.
func (l *Loop) flush(section string, acc *accumulator) error {
	records := acc.drain()
	if err := l.store.Merge(section, records); err != nil {
		return fmt.Errorf("flush %d records: %w", len(records), err)
	}

	metrics.Flushes.Inc()
	l.log.Info().Str("section", section).Int("records", len(records)).Msg("flushed accumulator")
	return nil
}

// accumulator buffers extracted entries between flushes. It is owned
// exclusively by one loop run.
type accumulator struct {
	records map[string]map[string]any
}

func newAccumulator() *accumulator {
	return &accumulator{records: make(map[string]map[string]any)}
}

// add merges an entry under the record-number key.
func (a *accumulator) add(key string, entry map[string]any) {
	existing, ok := a.records[key]
	if !ok {
		a.records[key] = entry
		return
	}
	for k, v := range entry {
		existing[k] = v
	}
}

// drain returns the buffered records and resets the accumulator.
func (a *accumulator) drain() map[string]map[string]any {
	records := a.records
	a.records = make(map[string]map[string]any)
	return records
}
