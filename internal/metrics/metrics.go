// Package metrics holds the prometheus collectors shared by the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts individual attempts made under a retry policy.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdbproxy_attempts_total",
			Help: "Total number of attempts made by retry policies",
		},
		[]string{"policy", "verdict"},
	)

	// ExhaustedTotal counts calls that used up their attempt budget.
	ExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdbproxy_exhausted_total",
			Help: "Total number of calls that exhausted all attempts",
		},
		[]string{"policy"},
	)

	// BackoffSeconds tracks the waits between attempts.
	BackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tmdbproxy_backoff_seconds",
			Help:    "Backoff wait between attempts in seconds",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"policy"},
	)

	// UpstreamLatency tracks upstream request latency per resource.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tmdbproxy_upstream_latency_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	// FallbacksServed counts responses answered from the fallback store.
	FallbacksServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdbproxy_fallbacks_served_total",
			Help: "Total number of fallback documents served",
		},
		[]string{"resource"},
	)

	// RequestsRejected counts client requests refused before reaching upstream.
	RequestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdbproxy_requests_rejected_total",
			Help: "Total number of requests rejected by auth or validation",
		},
		[]string{"operation", "kind"},
	)

	// NotificationsTotal counts notifier outcomes.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdbproxy_notifications_total",
			Help: "Total number of outbound notifications by result",
		},
		[]string{"result"},
	)
)
