package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method", "path"},
	)

	// Resolution pipeline
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_resolutions_total",
			Help: "Replies produced, by source",
		},
		[]string{"source"}, // "demo", "cache", "provider", "fallback"
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_response_cache_lookups_total",
			Help: "Response cache lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_provider_latency_seconds",
			Help:    "Generation provider round-trip latency",
			Buckets: []float64{.25, .5, 1, 2, 4, 6, 8, 10},
		},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_fallback_replies_total",
			Help: "Fallback replies served, by failure category",
		},
		[]string{"category"},
	)

	TitlesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_titles_generated_total",
			Help: "Conversation titles produced",
		},
		[]string{"outcome"}, // "generated", "default"
	)
)
