// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Intake outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeTooLarge        = "too_large"
	OutcomeStorageError    = "storage_error"
)

var (
	IntakeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Total number of document intake requests by outcome",
		},
		[]string{"outcome"},
	)

	DocumentsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_documents_uploaded_total",
			Help: "Total number of documents stored, by document kind",
		},
		[]string{"kind"},
	)

	DealerFoldersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_dealer_folders_created_total",
			Help: "Total number of dealer folders created in the storage provider",
		},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Latency of storage provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)
