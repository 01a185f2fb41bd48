package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// uploadTitle picks the session title after a file upload: the file
// name, unless it is too generic to be useful, in which case a
// generated title from the document snippet.
func uploadTitle(ctx context.Context, titler Titler, fileName, snippet string) string {
	lower := strings.ToLower(fileName)
	generic := strings.Contains(lower, "document") ||
		strings.Contains(lower, "resume") ||
		len(fileName) < 5
	if !generic {
		return fileName
	}

	if title := titler.GenerateTitle(ctx, snippet); title != rag.FallbackTitle {
		return title
	}
	return fileName
}

// handleChat answers a question against the session's documents and
// persists the exchange.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "No question provided", "")
		return
	}

	var (
		history   []session.Turn
		sessionID uuid.UUID
		persist   bool
	)
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session id", "")
			return
		}
		sessionID = id
		persist = true

		history, err = s.deps.Sessions.RecentTurns(r.Context(), id, rag.MaxHistoryTurns)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	ans, err := s.deps.Answerer.Ask(r.Context(), rag.Question{
		SessionID: req.SessionID,
		Text:      req.Question,
		History:   history,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if persist {
		if _, err := s.deps.Sessions.AddMessage(r.Context(), sessionID, session.RoleUser, req.Question); err != nil {
			s.writeDomainError(w, err)
			return
		}
		if _, err := s.deps.Sessions.AddMessage(r.Context(), sessionID, session.RoleModel, ans.Text); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": ans.Text})
}
