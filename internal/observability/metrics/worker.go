package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics instruments the ingestion worker.
type WorkerMetrics struct {
	DocumentsProcessed *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	InFlight           prometheus.Gauge
	IndexedChunks      prometheus.Counter
}

func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		DocumentsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "documents_processed_total",
			Help:      "Processed ingestion events by result.",
		}, []string{"result"}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "processing_duration_seconds",
			Help:      "Wall time spent processing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "documents_in_flight",
			Help:      "Documents currently being processed.",
		}),
		IndexedChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to the indexes.",
		}),
	}
}
