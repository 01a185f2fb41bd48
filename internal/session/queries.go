package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createSessionSQL = `
		INSERT INTO sessions (id, title)
		VALUES ($1, $2)
		RETURNING id, title, metadata, created_at, updated_at`

	getSessionSQL = `
		SELECT id, title, metadata, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	listSessionsSQL = `
		SELECT id, title, metadata, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`

	updateSessionSQL = `
		UPDATE sessions
		SET title = $2, metadata = COALESCE($3, metadata), updated_at = now()
		WHERE id = $1`

	deleteSessionSQL = `
		DELETE FROM sessions WHERE id = $1`

	addMessageSQL = `
		INSERT INTO messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, role, content, created_at`

	touchSessionSQL = `
		UPDATE sessions SET updated_at = now() WHERE id = $1`

	recentMessagesSQL = `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	listMessagesSQL = `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`
)

// PGQuerier implements Querier over a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a pool in a PGQuerier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	var s Session
	err := q.pool.QueryRow(ctx, createSessionSQL, arg.ID, arg.Title).
		Scan(&s.ID, &s.Title, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return s, nil
}

func (q *PGQuerier) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	var s Session
	err := q.pool.QueryRow(ctx, getSessionSQL, id).
		Scan(&s.ID, &s.Title, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

func (q *PGQuerier) ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	rows, err := q.pool.Query(ctx, listSessionsSQL, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Metadata, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// UpdateSession sets the title and, when metadata is non-nil, replaces
// the stored metadata document.
func (q *PGQuerier) UpdateSession(ctx context.Context, arg UpdateSessionParams) error {
	tag, err := q.pool.Exec(ctx, updateSessionSQL, arg.ID, arg.Title, arg.Metadata)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (q *PGQuerier) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := q.pool.Exec(ctx, deleteSessionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AddMessage inserts the message and bumps the session's updated_at in
// one transaction, so listing by activity stays consistent.
func (q *PGQuerier) AddMessage(ctx context.Context, arg AddMessageParams) (Message, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var m Message
	err = tx.QueryRow(ctx, addMessageSQL, arg.SessionID, arg.Role, arg.Content).
		Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.Exec(ctx, touchSessionSQL, arg.SessionID); err != nil {
		return Message{}, fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("committing transaction: %w", err)
	}
	return m, nil
}

func (q *PGQuerier) RecentMessages(ctx context.Context, arg RecentMessagesParams) ([]Message, error) {
	rows, err := q.pool.Query(ctx, recentMessagesSQL, arg.SessionID, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (q *PGQuerier) ListMessages(ctx context.Context, id uuid.UUID) ([]Message, error) {
	rows, err := q.pool.Query(ctx, listMessagesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return msgs, nil
}
