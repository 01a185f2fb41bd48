package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errLabel, message string) {
	writeJSON(w, status, errorResponse{Error: errLabel, Message: message})
}

// writeDomainError maps pipeline errors to HTTP responses. Limit and
// input errors answer 400, missing sessions 404, rate-limited model
// failures 429, everything else 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var le *rag.LimitError
	switch {
	case errors.As(err, &le):
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("%s limit exceeded", le.Limit),
			fmt.Sprintf("Limited to %d %s, got %d.", le.Max, le.Limit, le.Actual))

	case errors.Is(err, extract.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Unsupported file type",
			"Supported formats: PDF, DOCX, DOC, TXT, MD, RTF")

	case errors.Is(err, extract.ErrEmptyExtraction),
		errors.Is(err, rag.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "No text detected",
			"The document appears to be empty or unreadable.")

	case errors.Is(err, rag.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "No question provided", "")

	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", "")

	case rag.RateLimited(err):
		writeError(w, http.StatusTooManyRequests, "Rate Limit Exceeded",
			"The model is rate limited, try again shortly.")

	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}
