// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared by callers.
const (
	PhaseGlobal = "global"
	PhaseLocal  = "local"

	EndpointTopHeadlines = "top_headlines"
	EndpointEverything   = "everything"

	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeTransport   = "transport_error"
	OutcomeParse       = "parse_error"

	ClassifiedGlobal   = "global"
	ClassifiedLocal    = "local"
	ClassifiedFallback = "fallback"
)

var (
	articlesCommittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localnews_articles_committed_total",
			Help: "Total number of articles committed to the store, labeled by ingestion phase.",
		},
		[]string{"phase"},
	)

	feedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localnews_feed_requests_total",
			Help: "Total number of feed requests, labeled by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localnews_classifications_total",
			Help: "Total number of classification decisions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitSignalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localnews_rate_limit_signals_total",
			Help: "Total number of rate-limit responses received from the feed.",
		},
	)

	backoffDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localnews_backoff_delay_seconds",
			Help:    "Histogram of backoff sleeps taken after rate-limit responses.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localnews_rate_limit_delay_seconds",
			Help:    "Histogram of client-side pacing waits before feed requests.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCommit counts one committed article for the phase.
func ObserveCommit(phase string) {
	articlesCommittedTotal.WithLabelValues(phase).Inc()
}

// ObserveFeedRequest counts one feed call and its outcome.
func ObserveFeedRequest(endpoint, outcome string) {
	feedRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveClassification counts one classification decision.
func ObserveClassification(outcome string) {
	classificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitSignal counts one throttle response from the feed.
func ObserveRateLimitSignal() {
	rateLimitSignalsTotal.Inc()
}

// ObserveBackoff records the duration of a backoff sleep.
func ObserveBackoff(d time.Duration) {
	backoffDelaySeconds.Observe(d.Seconds())
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(d time.Duration) {
	rateLimitDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
