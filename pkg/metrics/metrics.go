package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedRenders counts rendered feed documents by scope (global|folder|public) and format (xml|json).
	FeedRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incubrix_feed_renders_total",
			Help: "Total number of rendered feed documents",
		},
		[]string{"scope", "format"},
	)

	// FeedItems records the item count of each rendered feed.
	FeedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incubrix_feed_items",
			Help:    "Number of items per rendered feed",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 250, 500},
		},
		[]string{"scope"},
	)

	// FeedRegenerations counts global feed regenerations by result (success|failure).
	FeedRegenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incubrix_feed_regenerations_total",
			Help: "Total number of global feed regenerations",
		},
		[]string{"result"},
	)

	// PayloadReleaseFailures counts payloads that could not be removed from storage.
	PayloadReleaseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "incubrix_payload_release_failures_total",
			Help: "Total number of failed payload deletions",
		},
	)

	// AssetsIngested counts uploaded files by content kind.
	AssetsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incubrix_assets_ingested_total",
			Help: "Total number of ingested files",
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incubrix_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
