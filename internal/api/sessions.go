package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/docsage/docsage/internal/session"
)

type sessionJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type messageJSON struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSessionJSON(s *session.Session) *sessionJSON {
	return &sessionJSON{
		ID:        s.ID.String(),
		Title:     s.Title,
		Metadata:  s.Metadata,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	// An empty body is fine; the store falls back to the default title.
	_ = decodeJSON(r, &req)

	sess, err := s.deps.Sessions.Create(r.Context(), req.Title)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := s.deps.Sessions.List(r.Context(), limit, offset)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]*sessionJSON, len(sessions))
	for i := range sessions {
		out[i] = toSessionJSON(&sessions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id", "")
		return
	}

	sess, err := s.deps.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

// handleDeleteSession removes the session's chunks first, then the
// session row; a chunk-store failure leaves the session intact so the
// delete can be retried.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id", "")
		return
	}

	if _, err := s.deps.Chunks.DeleteSession(r.Context(), id.String()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.deps.Sessions.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id", "")
		return
	}

	// 404 for unknown sessions instead of an empty list.
	if _, err := s.deps.Sessions.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	msgs, err := s.deps.Sessions.Messages(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, fallback int32) int32 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return fallback
	}
	return int32(n)
}
