// Package metrics declares the service's Prometheus collectors. They are
// registered on the default registry and served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendations
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_recommendation_requests_total",
			Help: "Recommendation requests by context and outcome",
		},
		[]string{"context", "outcome"}, // outcome: personalized, fallback, cached, error
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelf_recommendation_duration_seconds",
			Help:    "Time spent generating recommendations, cache misses only",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"context"},
	)

	RecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelf_recommendations_returned",
			Help:    "Number of books returned per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_interactions_recorded_total",
			Help: "Interactions appended to the store by event type",
		},
		[]string{"event_type"},
	)

	// Cache
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_cache_operations_total",
			Help: "Recommendation cache operations by result",
		},
		[]string{"operation", "result"}, // get: hit, miss, error; set/clear: ok, error
	)

	// Store circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	// Retention
	InteractionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_interactions_purged_total",
			Help: "Interactions deleted for falling outside the retention window",
		},
	)

	// HTTP
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelf_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecommendation counts a served request. Pass cached=true for cache hits.
func RecordRecommendation(context string, fallback, cached bool, returned int, duration time.Duration) {
	outcome := "personalized"
	switch {
	case cached:
		outcome = "cached"
	case fallback:
		outcome = "fallback"
	}
	RecommendationRequests.WithLabelValues(context, outcome).Inc()
	RecommendationsReturned.Observe(float64(returned))
	if !cached {
		RecommendationDuration.WithLabelValues(context).Observe(duration.Seconds())
	}
}

func RecordRecommendationError(context string) {
	RecommendationRequests.WithLabelValues(context, "error").Inc()
}

func RecordCache(operation, result string) {
	CacheOperations.WithLabelValues(operation, result).Inc()
}
