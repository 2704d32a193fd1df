package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchmatch_feed_fetch_requests_total",
		Help: "The total number of page requests issued by feed controllers",
	})

	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchmatch_feed_fetch_errors_total",
		Help: "The total number of page requests that failed",
	})

	droppedTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchmatch_feed_dropped_triggers_total",
		Help: "Trigger signals swallowed because a request was in flight or the feed was exhausted",
	})

	itemsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchmatch_feed_items_loaded_total",
		Help: "The total number of items appended to feeds",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "couchmatch_feed_fetch_duration_seconds",
		Help:    "Duration of page requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // Start at 5ms, double each bucket
	})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "couchmatch_feed_requests_in_flight",
		Help: "Page requests currently in flight across all feeds",
	})
)
