// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus collectors shared by the pipeline
// stages and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source metrics
	ArticlesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_articles_fetched_total",
			Help: "Raw articles returned by a provider",
		},
		[]string{"provider"},
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_source_errors_total",
			Help: "Provider calls that failed and were treated as empty",
		},
		[]string{"provider"},
	)

	FallbackTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodnews_fallback_triggered_total",
			Help: "Searches that fell back to per-outlet feeds",
		},
	)

	// Classifier metrics
	Classified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_classified_total",
			Help: "Articles classified, by category and decision",
		},
		[]string{"category", "decision"},
	)

	// Summarization metrics
	SummaryCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_summary_cache_total",
			Help: "Summary cache lookups by result",
		},
		[]string{"result"},
	)

	SummarizeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_summarize_calls_total",
			Help: "Remote summarization attempts by status",
		},
		[]string{"status"},
	)

	SummarizeInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "goodnews_summarize_in_flight",
			Help: "Remote summarization calls currently running",
		},
	)

	// Pipeline metrics
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goodnews_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode", "status"},
	)

	StoriesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodnews_stories_stored_total",
			Help: "Stories upserted into the story store",
		},
	)

	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_nats_messages_published_total",
			Help: "Run notifications published to NATS",
		},
		[]string{"subject", "status"},
	)

	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodnews_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goodnews_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "goodnews_application_info",
			Help: "Application information",
		},
		[]string{"version"},
	)
)

// Init records the running version.
func Init(version string) {
	ApplicationInfo.WithLabelValues(version).Set(1)
}
