// Package metrics provides the central Prometheus registry reference for
// the catalog client. Metrics are defined in the package that owns them
// (client, quota, retry) to keep ownership local and avoid circular
// dependencies; this package documents the full surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Quota Metrics (pkg/quota):
//   - catalog_quota_calls_remaining (Gauge): Calls remaining in the current daily window
//   - catalog_quota_blocks_total (Counter): Requests blocked due to critical budget level
//   - catalog_quota_throttles_total (Counter): Requests throttled due to warning budget level
//
// Retry Metrics (pkg/retry):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(catalog_errors_total[5m])
//
//   # Daily Budget Status
//   catalog_quota_calls_remaining < 100
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
