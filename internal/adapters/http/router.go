package http

import (
	"log/slog"
	"net/http"

	"github.com/acekavi/docqa/internal/core/ports"
	"github.com/acekavi/docqa/internal/observability/metrics"
)

type RouterOptions struct {
	Log        *slog.Logger
	Ingestor   ports.DocumentIngestor
	Documents  ports.DocumentReader
	Questions  ports.QuestionService
	Extraction ports.ExtractionService
	Metrics    *metrics.HTTPMetrics
	// MetricsHandler serves /metrics; usually promhttp.Handler.
	MetricsHandler http.Handler
}

// NewRouter wires the public HTTP surface.
func NewRouter(opts RouterOptions) http.Handler {
	h := &handlers{
		log:        opts.Log,
		ingestor:   opts.Ingestor,
		documents:  opts.Documents,
		questions:  opts.Questions,
		extraction: opts.Extraction,
		metrics:    opts.Metrics,
	}

	mux := http.NewServeMux()
	handle := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, withObservability(opts.Log, opts.Metrics, pattern, handler))
	}

	handle("GET /healthz", h.health)
	handle("POST /v1/documents", h.uploadDocument)
	handle("GET /v1/documents/{id}", h.getDocument)
	handle("POST /v1/ask", h.ask)
	handle("POST /v1/ask-reranked", h.askReranked)
	handle("POST /v1/extract", h.extract)
	handle("GET /v1/index/stats", h.indexStats)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	return mux
}
