// Package metrics holds the prometheus collectors exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	RecipeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_operations_total",
			Help: "Recipe writes by operation",
		},
		[]string{"operation"},
	)

	ImageUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_image_upload_bytes",
			Help:    "Size of accepted recipe image uploads after resizing",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
		},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Domain events that could not be published",
		},
		[]string{"type"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// RecordHTTPRequest records one finished request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
