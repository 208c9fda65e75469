// Package metrics exposes Prometheus instrumentation for long mining runs.
// Counters are registered on the default registry; Serve publishes them on
// /metrics when an address is configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequests counts calls made to the remote API by operation.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repomine_api_requests_total",
		Help: "Total number of GitHub API requests by operation",
	}, []string{"operation"})

	// RateLimitWaits counts flush-and-wait transitions of the loop.
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repomine_rate_limit_waits_total",
		Help: "Total number of blocking waits for rate limit reset",
	})

	// Flushes counts accumulator flushes to the output store.
	Flushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repomine_flushes_total",
		Help: "Total number of accumulator flushes to the output file",
	})

	// RecordsExtracted counts fully extracted records by kind.
	RecordsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repomine_records_extracted_total",
		Help: "Total number of records extracted by kind",
	}, []string{"kind"})
)

// Serve exposes /metrics on addr in a background goroutine. Errors are
// reported through errFn since the miner keeps running without metrics.
func Serve(addr string, errFn func(error)) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errFn(err)
		}
	}()
}
