package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/log"
)

// Querier defines the database operations Store depends on. The
// interface lives with its consumer; PGQuerier implements it for
// production and mocks implement it in tests.
type Querier interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error)
	UpdateSession(ctx context.Context, arg UpdateSessionParams) error
	DeleteSession(ctx context.Context, id uuid.UUID) error

	AddMessage(ctx context.Context, arg AddMessageParams) (Message, error)
	RecentMessages(ctx context.Context, arg RecentMessagesParams) ([]Message, error)
	ListMessages(ctx context.Context, id uuid.UUID) ([]Message, error)
}

// CreateSessionParams names a new session.
type CreateSessionParams struct {
	ID    uuid.UUID
	Title string
}

// ListSessionsParams paginates session listing.
type ListSessionsParams struct {
	Limit  int32
	Offset int32
}

// UpdateSessionParams renames a session and optionally replaces its
// metadata. Nil Metadata leaves the stored document untouched.
type UpdateSessionParams struct {
	ID       uuid.UUID
	Title    string
	Metadata json.RawMessage
}

// AddMessageParams appends one message to a session.
type AddMessageParams struct {
	SessionID uuid.UUID
	Role      string
	Content   string
}

// RecentMessagesParams bounds history retrieval.
type RecentMessagesParams struct {
	SessionID uuid.UUID
	Limit     int32
}

// Store manages session and message persistence. Safe for concurrent
// use when its Querier is.
type Store struct {
	queries Querier
	logger  log.Logger
}

// New creates a Store.
func New(queries Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{queries: queries, logger: logger}
}

// Create starts a new session. An empty title gets DefaultTitle.
func (s *Store) Create(ctx context.Context, title string) (*Session, error) {
	if title == "" {
		title = DefaultTitle
	}

	sess, err := s.queries.CreateSession(ctx, CreateSessionParams{
		ID:    uuid.New(),
		Title: title,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("session created", "id", sess.ID, "title", sess.Title)
	return &sess, nil
}

// Get retrieves a session by ID. Returns ErrSessionNotFound when no
// session exists.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.queries.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns sessions ordered by last activity, newest first.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	sessions, err := s.queries.ListSessions(ctx, ListSessionsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// SetTitle renames a session, leaving its metadata untouched.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	return s.Update(ctx, id, title, nil)
}

// Update renames a session and, when metadata is non-nil, replaces the
// document metadata stored on it.
func (s *Store) Update(ctx context.Context, id uuid.UUID, title string, metadata json.RawMessage) error {
	err := s.queries.UpdateSession(ctx, UpdateSessionParams{
		ID:       id,
		Title:    title,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	return nil
}

// Delete removes a session; its messages go with it via CASCADE.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}

	s.logger.Debug("session deleted", "id", id)
	return nil
}

// AddMessage appends a message and bumps the session's updated_at.
func (s *Store) AddMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	if role != RoleUser && role != RoleModel {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	msg, err := s.queries.AddMessage(ctx, AddMessageParams{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("adding message to session %s: %w", sessionID, err)
	}
	return &msg, nil
}

// Messages returns a session's full history in chronological order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	msgs, err := s.queries.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages for session %s: %w", sessionID, err)
	}
	return msgs, nil
}

// RecentTurns returns the last limit messages in chronological order,
// reduced to role/content pairs for query rewriting.
func (s *Store) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Turn, error) {
	msgs, err := s.queries.RecentMessages(ctx, RecentMessagesParams{
		SessionID: sessionID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("getting recent messages for session %s: %w", sessionID, err)
	}

	// RecentMessages returns newest first; reverse to chronological.
	turns := make([]Turn, len(msgs))
	for i, m := range msgs {
		turns[len(msgs)-1-i] = Turn{Role: m.Role, Content: m.Content}
	}
	return turns, nil
}
