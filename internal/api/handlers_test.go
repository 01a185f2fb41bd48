package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestReadyReflectsDependencyCheck(t *testing.T) {
	d := &testDeps{
		ingestor: &mockIngestor{}, answerer: &mockAnswerer{},
		titler: &mockTitler{}, sessions: newMockSessions(), chunks: &mockChunks{},
	}
	checkErr := errors.New("database down")
	srv := New(Config{}, Deps{
		Ingestor: d.ingestor, Answerer: d.answerer, Titler: d.titler,
		Sessions: d.sessions, Chunks: d.chunks,
	}, func(ctx context.Context) error { return checkErr }, nil)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready with failing check = %d, want 503", rec.Code)
	}
}

func TestUpload(t *testing.T) {
	srv, d := newTestServer(t)
	sessionID := uuid.New()

	body, contentType := multipartUpload(t, "quarterly-report.txt", "The capital of France is Paris.", sessionID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/upload = %d, body %s", rec.Code, rec.Body.String())
	}

	if d.ingestor.lastDoc.Format != extract.FormatTXT {
		t.Errorf("ingested format = %q, want txt", d.ingestor.lastDoc.Format)
	}
	if d.ingestor.lastDoc.SourceName != "quarterly-report.txt" {
		t.Errorf("source name = %q", d.ingestor.lastDoc.SourceName)
	}
	if d.ingestor.lastDoc.SessionID != sessionID.String() {
		t.Errorf("session id = %q", d.ingestor.lastDoc.SessionID)
	}

	var resp struct {
		Chunks      int          `json:"chunks"`
		TextSnippet string       `json:"textSnippet"`
		Session     *sessionJSON `json:"session"`
	}
	decodeBody(t, rec, &resp)
	if resp.Chunks != 3 || resp.TextSnippet != "snippet" {
		t.Errorf("response = %+v", resp)
	}

	// A descriptive file name becomes the title without a model call.
	if d.sessions.titles[sessionID] != "quarterly-report.txt" {
		t.Errorf("session title = %q, want file name", d.sessions.titles[sessionID])
	}
	if d.titler.called {
		t.Error("titler called for a descriptive file name")
	}

	// The document descriptor lands on the session.
	var meta struct {
		Type      string `json:"type"`
		FileName  string `json:"fileName"`
		WordCount int    `json:"wordCount"`
	}
	if err := json.Unmarshal(d.sessions.metadata[sessionID], &meta); err != nil {
		t.Fatalf("unmarshaling session metadata: %v", err)
	}
	if meta.Type != "TXT" || meta.FileName != "quarterly-report.txt" || meta.WordCount != 10 {
		t.Errorf("session metadata = %+v", meta)
	}
}

func TestUploadGenericNameGetsGeneratedTitle(t *testing.T) {
	srv, d := newTestServer(t)
	d.titler.title = "Paris Overview"
	sessionID := uuid.New()

	body, contentType := multipartUpload(t, "document.txt", "Paris facts.", sessionID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/upload = %d", rec.Code)
	}
	if !d.titler.called {
		t.Error("titler not called for a generic file name")
	}
	if d.sessions.titles[sessionID] != "Paris Overview" {
		t.Errorf("session title = %q, want generated title", d.sessions.titles[sessionID])
	}
}

func TestUploadUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartUpload(t, "image.png", "binary", "")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /api/upload (.png) = %d, want 400", rec.Code)
	}
}

func TestUploadNoFile(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/upload", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /api/upload without multipart = %d, want 400", rec.Code)
	}
}

func TestIngestText(t *testing.T) {
	srv, d := newTestServer(t)
	d.titler.title = "Paris Population Facts"
	sessionID := uuid.New()

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest-text", map[string]string{
		"text":      "Paris has about 2 million people.",
		"sessionId": sessionID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/ingest-text = %d, body %s", rec.Code, rec.Body.String())
	}

	if d.ingestor.lastText != "Paris has about 2 million people." {
		t.Errorf("ingested text = %q", d.ingestor.lastText)
	}
	if d.sessions.titles[sessionID] != "Paris Population Facts" {
		t.Errorf("session title = %q, want generated title", d.sessions.titles[sessionID])
	}

	var meta struct {
		Type      string `json:"type"`
		CharCount int    `json:"charCount"`
		Snippet   string `json:"snippet"`
	}
	if err := json.Unmarshal(d.sessions.metadata[sessionID], &meta); err != nil {
		t.Fatalf("unmarshaling session metadata: %v", err)
	}
	if meta.Type != "TEXT" || meta.CharCount != 60 || meta.Snippet != "Paris has about 2 million people." {
		t.Errorf("session metadata = %+v", meta)
	}

	var resp struct {
		Chunks  int          `json:"chunks"`
		Session *sessionJSON `json:"session"`
	}
	decodeBody(t, rec, &resp)
	if resp.Chunks != 2 || resp.Session == nil {
		t.Errorf("response = %+v", resp)
	}
}

func TestIngestTextValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest-text", map[string]string{
		"text": "   ", "sessionId": uuid.NewString(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest-text", map[string]string{
		"text": "content",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session id = %d, want 400", rec.Code)
	}
}

func TestIngestTextLimitError(t *testing.T) {
	srv, d := newTestServer(t)
	d.ingestor.textFunc = func(ctx context.Context, text, sessionID string) (*rag.IngestResult, error) {
		return nil, &rag.LimitError{Limit: "characters", Max: rag.MaxTextChars, Actual: 60000}
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest-text", map[string]string{
		"text": "huge", "sessionId": uuid.NewString(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit error = %d, want 400", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "characters limit exceeded" {
		t.Errorf("error label = %q", resp.Error)
	}
}

func TestChatPersistsExchange(t *testing.T) {
	srv, d := newTestServer(t)
	sessionID := uuid.New()
	d.sessions.turnsFunc = func(ctx context.Context, id uuid.UUID, limit int32) ([]session.Turn, error) {
		if limit != rag.MaxHistoryTurns {
			t.Errorf("history limit = %d, want %d", limit, rag.MaxHistoryTurns)
		}
		return []session.Turn{{Role: session.RoleUser, Content: "earlier question"}}, nil
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{
		"question":  "What is its population?",
		"sessionId": sessionID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/chat = %d, body %s", rec.Code, rec.Body.String())
	}

	if len(d.answerer.lastQ.History) != 1 {
		t.Errorf("answerer got %d history turns, want 1", len(d.answerer.lastQ.History))
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["answer"] != "the answer" {
		t.Errorf("answer = %q", resp["answer"])
	}

	if len(d.sessions.messages) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(d.sessions.messages))
	}
	if d.sessions.messages[0].Role != session.RoleUser || d.sessions.messages[0].Content != "What is its population?" {
		t.Errorf("first message = %+v", d.sessions.messages[0])
	}
	if d.sessions.messages[1].Role != session.RoleModel || d.sessions.messages[1].Content != "the answer" {
		t.Errorf("second message = %+v", d.sessions.messages[1])
	}
}

func TestChatWithoutSessionSkipsPersistence(t *testing.T) {
	srv, d := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{
		"question": "standalone question",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/chat = %d", rec.Code)
	}
	if len(d.sessions.messages) != 0 {
		t.Errorf("persisted %d messages without a session, want 0", len(d.sessions.messages))
	}
}

func TestChatRateLimitedModel(t *testing.T) {
	srv, d := newTestServer(t)
	d.answerer.askFunc = func(ctx context.Context, q rag.Question) (*rag.Answer, error) {
		return nil, &rag.ServiceError{Op: "generation", RateLimited: true, Err: errors.New("429")}
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{
		"question": "q",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("rate-limited chat = %d, want 429", rec.Code)
	}
}

func TestChatValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{"question": " "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank question = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{
		"question": "q", "sessionId": "not-a-uuid",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad session id = %d, want 400", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, d := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/sessions", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/sessions = %d", rec.Code)
	}
	var created sessionJSON
	decodeBody(t, rec, &created)
	if created.Title != session.DefaultTitle {
		t.Errorf("created title = %q, want default", created.Title)
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/sessions = %d", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodDelete, "/api/sessions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /api/sessions/{id} = %d", rec.Code)
	}
	// Chunks go first, then the session row.
	if d.chunks.deletedSession != created.ID {
		t.Errorf("chunk delete session = %q, want %s", d.chunks.deletedSession, created.ID)
	}
	if d.sessions.deletedID.String() != created.ID {
		t.Errorf("session delete id = %s, want %s", d.sessions.deletedID, created.ID)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	srv, d := newTestServer(t)
	d.sessions.getFunc = func(ctx context.Context, id uuid.UUID) (*session.Session, error) {
		return nil, session.ErrSessionNotFound
	}

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown session = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/sessions/"+uuid.NewString()+"/messages", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown session messages = %d, want 404", rec.Code)
	}
}

func TestSessionInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/sessions/not-a-uuid = %d, want 400", rec.Code)
	}
}
