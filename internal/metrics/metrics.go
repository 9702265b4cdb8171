package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "announcements"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Upstream source metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls made to third-party announcement sources by outcome",
		},
		[]string{"source", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of third-party announcement sources",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 10},
		},
		[]string{"source"},
	)

	FallbackSubstitutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_substitutions_total",
			Help:      "Times a category served its static fallback records",
		},
		[]string{"category"},
	)

	CategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_failures_total",
			Help:      "Times every source of a category failed",
		},
		[]string{"category"},
	)

	// Archive pipeline metrics
	SnapshotsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_messages_total",
			Help:      "Announcement snapshot messages written to Kafka",
		},
		[]string{"status"},
	)

	ArchiveDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_documents_total",
			Help:      "Announcements handled by the archive worker by outcome",
		},
		[]string{"status"},
	)
)

// ObserveUpstream records the outcome of one source fetch.
func ObserveUpstream(source string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(source, status).Inc()
	UpstreamRequestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
