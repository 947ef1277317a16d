package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infinity_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infinity_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	documentsHashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infinity_documents_hashed_total",
			Help: "Contract payloads hashed by the generation endpoint",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infinity_uploads_total",
			Help: "Content uploads by storage mode",
		},
		[]string{"mode"},
	)

	uploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infinity_upload_bytes",
			Help:    "Size of uploaded content",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
	)

	positionSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infinity_position_saves_total",
			Help: "Position save requests by outcome",
		},
		[]string{"result"},
	)
)
