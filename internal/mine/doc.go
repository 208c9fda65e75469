// Package mine implements the range-to-index resolution algorithm and the
// resilient extraction loop at the heart of repomine.
//
// A GitHub repository's issues and pull requests form a remotely paginated,
// ascending sequence of numbered records. Numbers may be sparse (deleted or
// transferred items leave gaps), so a user-requested number range cannot be
// turned into list positions arithmetically. The resolver binary-searches the
// paginated collection page-by-page, falling back to the nearest lower record
// when a requested number does not exist.
//
// The extraction loop walks the resolved index range one record at a time,
// applies the configured field extractors, and accumulates results in memory.
// When the remote session signals quota exhaustion the loop flushes the
// accumulator to the persistent store, blocks until the quota resets, and
// retries the same index. Records are only merged into the accumulator after
// extraction succeeds, so a retried index never duplicates output.
package mine
