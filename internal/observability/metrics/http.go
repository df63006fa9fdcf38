package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docqa"

// HTTPMetrics instruments the public API surface.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	// AnswersTotal splits answered questions by outcome: "answered" when
	// the response carries sources, "fallback" when it does not.
	AnswersTotal       *prometheus.CounterVec
	RetrievedSources   prometheus.Histogram
	RerankOrderChanged prometheus.Counter

	ExtractionOutcomes *prometheus.CounterVec
	ExtractionRetries  prometheus.Histogram
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		AnswersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "answers_total",
			Help:      "Answered questions by outcome.",
		}, []string{"outcome"}),
		RetrievedSources: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "answer_sources",
			Help:      "Number of cited sources per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		RerankOrderChanged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "rerank_order_changed_total",
			Help:      "Reranked requests whose top results differ from the first stage.",
		}),
		ExtractionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "outcomes_total",
			Help:      "Extraction requests by validation outcome.",
		}, []string{"outcome"}),
		ExtractionRetries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "retries",
			Help:      "Corrective retries spent per extraction request.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
	}
}
