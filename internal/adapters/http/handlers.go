package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
	"github.com/acekavi/docqa/internal/observability/metrics"
)

// maxUploadBytes caps a single document upload.
const maxUploadBytes = 64 << 20

type handlers struct {
	log        *slog.Logger
	ingestor   ports.DocumentIngestor
	documents  ports.DocumentReader
	questions  ports.QuestionService
	extraction ports.ExtractionService
	metrics    *metrics.HTTPMetrics
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, r, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("missing multipart field %q: %w", "file", err)))
		return
	}
	defer file.Close()

	doc, err := h.ingestor.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	answer, err := h.questions.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	h.observeAnswer(len(answer.Sources))
	writeJSON(w, http.StatusOK, answer)
}

type askRerankedRequest struct {
	Question string `json:"question"`
	InitialK int    `json:"initial_k"`
	FinalK   int    `json:"final_k"`
}

func (h *handlers) askReranked(w http.ResponseWriter, r *http.Request) {
	var req askRerankedRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	answer, err := h.questions.AskReranked(r.Context(), req.Question, req.InitialK, req.FinalK)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	h.observeAnswer(len(answer.Sources))
	if h.metrics != nil && answer.Stats.RerankingChangedOrder {
		h.metrics.RerankOrderChanged.Inc()
	}
	writeJSON(w, http.StatusOK, answer)
}

type extractRequest struct {
	Text string `json:"text"`
}

func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	result, err := h.extraction.Extract(r.Context(), req.Text)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	if h.metrics != nil {
		outcome := "valid"
		if !result.ValidationPassed {
			outcome = "invalid"
		}
		h.metrics.ExtractionOutcomes.WithLabelValues(outcome).Inc()
		h.metrics.ExtractionRetries.Observe(float64(result.Retries))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) indexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.questions.Stats(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) observeAnswer(sources int) {
	if h.metrics == nil {
		return
	}
	outcome := "answered"
	if sources == 0 {
		outcome = "fallback"
	}
	h.metrics.AnswersTotal.WithLabelValues(outcome).Inc()
	h.metrics.RetrievedSources.Observe(float64(sources))
}

func decodeJSON(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}
