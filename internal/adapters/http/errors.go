package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/acekavi/docqa/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps semantic error kinds onto HTTP status codes. Unknown
// errors are internal.
func statusForError(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
	} else {
		log.Warn("request rejected", "request_id", RequestIDFromContext(r.Context()), "status", status, "error", err)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
