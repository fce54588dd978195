// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package metrics holds the Prometheus instrumentation for the service:
// API latency and throughput, the learning loop (reward distribution,
// epsilon, Q-table growth), the emotion oracle client, and caches.
package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Learning Loop Metrics
	RewardDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reward_total",
			Help:    "Distribution of computed feedback rewards",
			Buckets: []float64{-1, -0.5, -0.2, 0, 0.2, 0.4, 0.6, 0.8, 1},
		},
	)

	FeedbackProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_processed_total",
			Help: "Total number of feedback events applied to the policy",
		},
	)

	EpsilonGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exploration_epsilon",
			Help: "Current exploration rate per user",
		},
		[]string{"user_id"},
	)

	QTableSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qtable_entries",
			Help: "Number of Q-table entries per user",
		},
		[]string{"user_id"},
	)

	ExplorationInjections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exploration_injections_total",
			Help: "Total number of exploration candidates promoted into results",
		},
	)

	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation items returned",
		},
	)

	// Oracle Client Metrics
	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total number of emotion oracle requests",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	OracleRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oracle_retries_total",
			Help: "Total number of emotion oracle retry attempts",
		},
	)

	OracleRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Duration of emotion oracle calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "response", "profile"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Catalog Metrics
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Number of items currently indexed",
		},
	)

	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Total number of catalog reload attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Persistence Metrics
	PersistFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "persist_flush_duration_seconds",
			Help:    "Duration of debounced persistence flushes",
			Buckets: prometheus.DefBuckets,
		},
	)

	PersistPendingKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "persist_pending_keys",
			Help: "Number of dirty keys awaiting a persistence flush",
		},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of pending recommendation sessions",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total number of pending sessions dropped by TTL sweep",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

// startTime anchors the uptime gauge to process start.
var startTime = time.Now()

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFeedback records one processed feedback event and its reward.
func RecordFeedback(rewardTotal float64) {
	FeedbackProcessed.Inc()
	RewardDistribution.Observe(rewardTotal)
}

// UpdatePolicyGauges updates the per-user learning gauges after a policy
// mutation.
func UpdatePolicyGauges(userID string, epsilon float64, qEntries int) {
	EpsilonGauge.WithLabelValues(userID).Set(epsilon)
	QTableSize.WithLabelValues(userID).Set(float64(qEntries))
}

// RecordOracleRequest records one oracle call attempt outcome.
func RecordOracleRequest(result string, duration time.Duration) {
	OracleRequests.WithLabelValues(result).Inc()
	OracleRequestDuration.Observe(duration.Seconds())
}

// RecordCatalogReload records a catalog reload attempt. On success the item
// gauge is updated too.
func RecordCatalogReload(items int, err error) {
	if err != nil {
		CatalogReloads.WithLabelValues("failure").Inc()
		return
	}
	CatalogReloads.WithLabelValues("success").Inc()
	CatalogItems.Set(float64(items))
}

// BreakerStateValue maps a gobreaker state name to the gauge encoding.
func BreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// StatusLabel renders an HTTP status code for the counter label.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}

// SetAppInfo records the running version, called once at startup.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}
