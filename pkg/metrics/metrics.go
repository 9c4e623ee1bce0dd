// Package metrics provides the Prometheus exposition endpoint for the
// gateway. All metrics are defined in their respective packages (client,
// cache, ratelimit) via promauto to maintain modularity and avoid
// circular dependencies; this package documents the catalog.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - notion_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status; status "cache" marks cache hits
//   - notion_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - notion_errors_total{class} (Counter): Errors by class (client, server, rate_limit, transport)
//
// Retry Metrics (pkg/client):
//   - notion_retries_total{error_class} (Counter): Retry attempts by error class
//   - notion_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - notion_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Cache Metrics (pkg/cache):
//   - notion_cache_hits_total (Counter): Response cache hits
//   - notion_cache_misses_total (Counter): Response cache misses
//   - notion_cache_size_bytes (Gauge): Bytes written to the cache
//   - notion_cache_invalidations_total (Counter): Entries dropped after write operations
//   - notion_cache_errors_total{operation} (Counter): Cache operation errors
//
// Throttle Metrics (pkg/ratelimit):
//   - notion_throttle_wait_seconds (Histogram): Time spent waiting on the shared throttle
//   - notion_throttle_requests_total (Counter): Requests that passed through the throttle
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(notion_cache_hits_total[5m]) /
//   (rate(notion_cache_hits_total[5m]) + rate(notion_cache_misses_total[5m]))
//
//   # Request Error Rate
//   rate(notion_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(notion_request_duration_seconds_bucket[5m]))
//
//   # Rate-limit pressure
//   rate(notion_retries_total{error_class="rate_limit"}[5m])
