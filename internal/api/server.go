// Package api exposes the HTTP surface: document upload, text
// ingestion, chat, session management and health probes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

// MaxUploadBytes caps multipart uploads at 15 MB.
const MaxUploadBytes = 15 << 20

// Ingestor runs the ingestion pipeline. Implemented by rag.Ingestor.
type Ingestor interface {
	IngestDocument(ctx context.Context, doc rag.Document) (*rag.IngestResult, error)
	IngestText(ctx context.Context, text, sessionID string) (*rag.IngestResult, error)
}

// Answerer runs the query pipeline. Implemented by rag.Answerer.
type Answerer interface {
	Ask(ctx context.Context, q rag.Question) (*rag.Answer, error)
}

// Titler derives session titles. Implemented by rag.Titler.
type Titler interface {
	GenerateTitle(ctx context.Context, text string) string
}

// SessionStore persists sessions and messages. Implemented by
// session.Store.
type SessionStore interface {
	Create(ctx context.Context, title string) (*session.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	List(ctx context.Context, limit, offset int32) ([]session.Session, error)
	Update(ctx context.Context, id uuid.UUID, title string, metadata json.RawMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error)
	Messages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error)
	RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int32) ([]session.Turn, error)
}

// ChunkDeleter removes a session's stored chunks. Implemented by
// knowledge.Store.
type ChunkDeleter interface {
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

// Deps bundles the server's collaborators.
type Deps struct {
	Ingestor Ingestor
	Answerer Answerer
	Titler   Titler
	Sessions SessionStore
	Chunks   ChunkDeleter
}

// Config holds server settings.
type Config struct {
	Addr string

	// RequestsPerMinute bounds each client IP on the model-backed
	// endpoints. Zero disables rate limiting.
	RequestsPerMinute int
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	deps   Deps
	logger log.Logger

	handler http.Handler
	ready   func(ctx context.Context) error
}

// New assembles the server and its routes. ready is the readiness
// probe dependency check (usually the database ping); nil means always
// ready.
func New(cfg Config, deps Deps, ready func(ctx context.Context) error, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		ready:  ready,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	limited := newClientLimiter(s.cfg.RequestsPerMinute)
	mux.Handle("POST /api/upload", limited.wrap(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /api/ingest-text", limited.wrap(http.HandlerFunc(s.handleIngestText)))
	mux.Handle("POST /api/chat", limited.wrap(http.HandlerFunc(s.handleChat)))

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleListMessages)

	return s.withRecovery(s.withLogging(mux))
}

// Handler returns the complete middleware-wrapped handler, mainly for
// tests against httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// sessionIDFromPath parses the {id} path segment.
func sessionIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id: %w", err)
	}
	return id, nil
}

var _ Ingestor = (*rag.Ingestor)(nil)
var _ Answerer = (*rag.Answerer)(nil)
var _ Titler = (*rag.Titler)(nil)
var _ SessionStore = (*session.Store)(nil)
var _ ChunkDeleter = (*knowledge.Store)(nil)
