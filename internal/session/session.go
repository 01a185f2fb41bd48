// Package session persists chat sessions and their message history in
// PostgreSQL. Deleting a session cascades to its messages; document
// chunks are owned by the knowledge package and cleaned up separately.
package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message roles. The model role covers every generated answer,
// including refusals.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// DefaultTitle is assigned at creation and replaced once a title has
// been generated from the first ingested document.
const DefaultTitle = "New Analysis"

var (
	// ErrSessionNotFound indicates the session ID matches no row.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside user/model.
	ErrInvalidRole = errors.New("invalid message role")
)

// Session is a conversation scope: documents ingested into it and
// questions asked in it stay inside it. Metadata describes the
// ingested document (type, file name, counts) as raw JSON.
type Session struct {
	ID        uuid.UUID
	Title     string
	Metadata  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one stored conversation entry.
type Message struct {
	ID        int64
	SessionID uuid.UUID
	Role      string
	Content   string
	CreatedAt time.Time
}

// Turn is the reduced message form handed to the answering pipeline
// for history-aware query rewriting.
type Turn struct {
	Role    string
	Content string
}
