package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/rag"
)

type ingestResponse struct {
	Chunks      int              `json:"chunks"`
	TextSnippet string           `json:"textSnippet"`
	Metadata    extract.Metadata `json:"metadata"`
	Session     *sessionJSON     `json:"session,omitempty"`
}

// handleUpload ingests a multipart file upload into a session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "File too large",
				"Maximum file size is 15MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload", "")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded", "")
		return
	}
	defer file.Close()

	format, err := extract.ParseFormat(filepath.Ext(header.Filename))
	if err != nil || format == extract.FormatText {
		writeError(w, http.StatusBadRequest, "Unsupported file type",
			"Supported formats: PDF, DOCX, DOC, TXT, MD, RTF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", "")
		return
	}

	sessionID := r.FormValue("sessionId")

	res, err := s.deps.Ingestor.IngestDocument(r.Context(), rag.Document{
		Data:       data,
		Format:     format,
		SessionID:  sessionID,
		SourceName: header.Filename,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := ingestResponse{
		Chunks:      res.ChunkCount,
		TextSnippet: res.Snippet,
		Metadata:    res.Meta,
	}

	if id, parseErr := uuid.Parse(sessionID); parseErr == nil {
		title := uploadTitle(r.Context(), s.deps.Titler, header.Filename, res.Snippet)
		resp.Session = s.retitleSession(w, r, id, title, uploadSessionMeta(header.Filename, format, res.Meta))
		if resp.Session == nil {
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleIngestText ingests pasted text and retitles the session from
// the generated title.
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided", "")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Session ID is required", "")
		return
	}

	res, err := s.deps.Ingestor.IngestText(r.Context(), req.Text, req.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := ingestResponse{
		Chunks:      res.ChunkCount,
		TextSnippet: res.Snippet,
		Metadata:    res.Meta,
	}
	title := s.deps.Titler.GenerateTitle(r.Context(), req.Text)
	resp.Session = s.retitleSession(w, r, id, title, textSessionMeta(req.Text, res.Meta))
	if resp.Session == nil {
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// sessionMeta is the document descriptor stored on the session after
// ingestion. Fields are populated per source type.
type sessionMeta struct {
	Type         string `json:"type"`
	FileName     string `json:"fileName,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	WordCount    int    `json:"wordCount,omitempty"`
	PageEstimate int    `json:"pageEstimate,omitempty"`
	CharCount    int    `json:"charCount,omitempty"`
	Snippet      string `json:"snippet,omitempty"`
}

func uploadSessionMeta(fileName string, format extract.Format, meta extract.Metadata) json.RawMessage {
	sm := sessionMeta{
		Type:     strings.ToUpper(string(format)),
		FileName: fileName,
	}
	switch m := meta.(type) {
	case extract.PDFMeta:
		sm.PageCount = m.PageCount
	case extract.WordMeta:
		sm.WordCount = m.WordCount
		sm.PageEstimate = m.PageEstimate
	case extract.TextMeta:
		sm.WordCount = m.WordCount
		sm.CharCount = m.CharCount
	}
	b, _ := json.Marshal(sm)
	return b
}

func textSessionMeta(text string, meta extract.Metadata) json.RawMessage {
	sm := sessionMeta{Type: "TEXT"}
	if m, ok := meta.(extract.TextMeta); ok {
		sm.CharCount = m.CharCount
	}
	if runes := []rune(text); len(runes) > 500 {
		sm.Snippet = string(runes[:500])
	} else {
		sm.Snippet = text
	}
	b, _ := json.Marshal(sm)
	return b
}

// retitleSession stores the title and document metadata and returns the
// refreshed session, or writes the error response and returns nil.
func (s *Server) retitleSession(w http.ResponseWriter, r *http.Request, id uuid.UUID, title string, meta json.RawMessage) *sessionJSON {
	if err := s.deps.Sessions.Update(r.Context(), id, title, meta); err != nil {
		s.writeDomainError(w, err)
		return nil
	}
	sess, err := s.deps.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return nil
	}
	return toSessionJSON(sess)
}
