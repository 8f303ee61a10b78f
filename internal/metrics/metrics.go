// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour360_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tour360_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"route"},
	)

	HotspotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tour360_hotspots_created_total",
			Help: "Hotspots committed through the creation flow",
		},
	)

	EngineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour360_engine_failures_total",
			Help: "Engine operations that failed and were contained",
		},
		[]string{"op"},
	)

	ViewerSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tour360_viewer_sessions",
			Help: "Open viewer sessions",
		},
	)

	ImagePrepareLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tour360_image_prepare_ms",
			Help:    "Latency of scene image preparation in milliseconds",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	ImageCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour360_image_cache_total",
			Help: "Image preparation cache lookups by result",
		},
		[]string{"result"},
	)
)
