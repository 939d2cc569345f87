// Package metrics provides Prometheus metrics for the income prediction
// service. It defines counters, gauges, and histograms for inference,
// dataset handling, history persistence, and the live history feed, exposed
// on the metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Inference metrics
	Predictions        prometheus.Counter   // Total number of predictions served
	PredictionFailures prometheus.Counter   // Total number of failed predictions
	PredictionLatency  prometheus.Histogram // Single-record inference latency in seconds
	PredictionScores   prometheus.Histogram // Distribution of above-limit probabilities
	ModelLoads         prometheus.Counter   // Total number of model artifact loads
	ModelLoadFailures  prometheus.Counter   // Total number of failed artifact loads

	// Dataset metrics
	DatasetUploads prometheus.Counter   // Total number of dataset uploads accepted
	ChunkReads     prometheus.Counter   // Total number of dataset pages served
	BulkRows       prometheus.Histogram // Rows per bulk prediction run

	// History metrics
	HistoryAppends    prometheus.Counter // Total number of single-prediction appends
	HistoryBulkWrites prometheus.Counter // Total number of bulk history overwrites

	// Live feed and system metrics
	WSClients   prometheus.Gauge   // Currently connected history feed clients
	ErrorsTotal prometheus.Counter // Total number of request handling errors
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows for isolated metric collection in tests without affecting
// the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Single-record inference latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of above-limit probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_loads_total",
			Help: "Total number of model artifact loads",
		}),
		ModelLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_load_failures_total",
			Help: "Total number of failed artifact loads",
		}),
		DatasetUploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_uploads_total",
			Help: "Total number of dataset uploads accepted",
		}),
		ChunkReads: factory.NewCounter(prometheus.CounterOpts{
			Name: "chunk_reads_total",
			Help: "Total number of dataset pages served",
		}),
		BulkRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bulk_rows",
			Help:    "Rows per bulk prediction run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		HistoryAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_appends_total",
			Help: "Total number of single-prediction history appends",
		}),
		HistoryBulkWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_bulk_writes_total",
			Help: "Total number of bulk history overwrites",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_clients",
			Help: "Currently connected history feed clients",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of request handling errors",
		}),
	}
}
