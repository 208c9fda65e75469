// Package github is the remote session layer for repomine.
//
// It wraps the go-github client with PAT authentication, dual-strategy rate
// limiting (a proactive token bucket plus reactive header-driven waits), and
// typed errors. Issues and pull requests are exposed as page-indexed
// collections sorted ascending by number, the shape the mine package's range
// resolver and extraction loop operate on.
//
// Rate-limit exhaustion surfaces as *RateLimitError, which the extraction
// loop recovers from by flushing and blocking on WaitForReset. Every other
// API failure is wrapped as *APIError and treated as fatal by callers.
package github
