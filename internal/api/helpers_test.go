package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

type mockIngestor struct {
	docFunc  func(ctx context.Context, doc rag.Document) (*rag.IngestResult, error)
	textFunc func(ctx context.Context, text, sessionID string) (*rag.IngestResult, error)

	lastDoc  rag.Document
	lastText string
}

func (m *mockIngestor) IngestDocument(ctx context.Context, doc rag.Document) (*rag.IngestResult, error) {
	m.lastDoc = doc
	if m.docFunc != nil {
		return m.docFunc(ctx, doc)
	}
	return &rag.IngestResult{
		ChunkCount: 3,
		Snippet:    "snippet",
		Meta:       extract.TextMeta{WordCount: 10, CharCount: 60},
	}, nil
}

func (m *mockIngestor) IngestText(ctx context.Context, text, sessionID string) (*rag.IngestResult, error) {
	m.lastText = text
	if m.textFunc != nil {
		return m.textFunc(ctx, text, sessionID)
	}
	return &rag.IngestResult{
		ChunkCount: 2,
		Snippet:    "snippet",
		Meta:       extract.TextMeta{WordCount: 10, CharCount: 60},
	}, nil
}

type mockAnswerer struct {
	askFunc func(ctx context.Context, q rag.Question) (*rag.Answer, error)
	lastQ   rag.Question
}

func (m *mockAnswerer) Ask(ctx context.Context, q rag.Question) (*rag.Answer, error) {
	m.lastQ = q
	if m.askFunc != nil {
		return m.askFunc(ctx, q)
	}
	return &rag.Answer{Text: "the answer", RewrittenQuery: q.Text}, nil
}

type mockTitler struct {
	title  string
	called bool
}

func (m *mockTitler) GenerateTitle(ctx context.Context, text string) string {
	m.called = true
	if m.title == "" {
		return rag.FallbackTitle
	}
	return m.title
}

type mockSessions struct {
	getFunc    func(ctx context.Context, id uuid.UUID) (*session.Session, error)
	turnsFunc  func(ctx context.Context, id uuid.UUID, limit int32) ([]session.Turn, error)
	deleteFunc func(ctx context.Context, id uuid.UUID) error

	created   []string
	titles    map[uuid.UUID]string
	metadata  map[uuid.UUID]json.RawMessage
	messages  []session.Message
	deletedID uuid.UUID
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		titles:   make(map[uuid.UUID]string),
		metadata: make(map[uuid.UUID]json.RawMessage),
	}
}

func (m *mockSessions) Create(ctx context.Context, title string) (*session.Session, error) {
	if title == "" {
		title = session.DefaultTitle
	}
	m.created = append(m.created, title)
	now := time.Now()
	return &session.Session{ID: uuid.New(), Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (m *mockSessions) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	title := m.titles[id]
	if title == "" {
		title = session.DefaultTitle
	}
	return &session.Session{ID: id, Title: title}, nil
}

func (m *mockSessions) List(ctx context.Context, limit, offset int32) ([]session.Session, error) {
	return []session.Session{{ID: uuid.New(), Title: "one"}}, nil
}

func (m *mockSessions) Update(ctx context.Context, id uuid.UUID, title string, metadata json.RawMessage) error {
	m.titles[id] = title
	if metadata != nil {
		m.metadata[id] = metadata
	}
	return nil
}

func (m *mockSessions) Delete(ctx context.Context, id uuid.UUID) error {
	m.deletedID = id
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockSessions) AddMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error) {
	msg := session.Message{
		ID:        int64(len(m.messages) + 1),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockSessions) Messages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error) {
	return m.messages, nil
}

func (m *mockSessions) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int32) ([]session.Turn, error) {
	if m.turnsFunc != nil {
		return m.turnsFunc(ctx, sessionID, limit)
	}
	return nil, nil
}

type mockChunks struct {
	deletedSession string
	deleteErr      error
}

func (m *mockChunks) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	m.deletedSession = sessionID
	return 1, m.deleteErr
}

type testDeps struct {
	ingestor *mockIngestor
	answerer *mockAnswerer
	titler   *mockTitler
	sessions *mockSessions
	chunks   *mockChunks
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	d := &testDeps{
		ingestor: &mockIngestor{},
		answerer: &mockAnswerer{},
		titler:   &mockTitler{},
		sessions: newMockSessions(),
		chunks:   &mockChunks{},
	}
	srv := New(Config{Addr: "127.0.0.1:0"}, Deps{
		Ingestor: d.ingestor,
		Answerer: d.answerer,
		Titler:   d.titler,
		Sessions: d.sessions,
		Chunks:   d.chunks,
	}, nil, log.NewNop())
	return srv, d
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func multipartUpload(t *testing.T, fileName, content, sessionID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	fmt.Fprint(fw, content)
	if sessionID != "" {
		if err := mw.WriteField("sessionId", sessionID); err != nil {
			t.Fatalf("writing sessionId field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
