package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/docsage/docsage/internal/log"
)

// VectorDimension is the embedding dimensionality stored in the
// documents table. Must match the vector(n) column in the schema.
const VectorDimension int32 = 768

// Embedding task types for the Gemini embedding models.
const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

var (
	// ErrNoChunks indicates an AddChunks call with an empty slice.
	ErrNoChunks = errors.New("no chunks to store")

	// ErrEmbeddingMismatch indicates the embedder returned a different
	// number of vectors than documents submitted.
	ErrEmbeddingMismatch = errors.New("embedding count does not match document count")
)

// Querier is the storage dependency of Store. Implemented by PGQuerier
// for production and by fakes in tests.
type Querier interface {
	InsertChunks(ctx context.Context, rows []ChunkRow) error
	SearchChunks(ctx context.Context, arg SearchParams) ([]SearchRow, error)
	CountChunks(ctx context.Context, filter []byte) (int64, error)
	DeleteChunks(ctx context.Context, filter []byte) (int64, error)
}

// ChunkRow is the wire form of a chunk headed for storage.
type ChunkRow struct {
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
}

// SearchParams drives a similarity query. A nil Filter matches all rows.
type SearchParams struct {
	Embedding pgvector.Vector
	Filter    []byte
	Limit     int32
}

// SearchRow is a raw similarity hit before metadata decoding.
type SearchRow struct {
	Content    string
	Metadata   []byte
	Similarity float32
}

// Store embeds chunks and manages them in the vector database.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. All dependencies are required.
func New(queries Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// AddChunks embeds the chunks in a single batch request and inserts
// them. Returns the number of chunks stored. The operation is not
// atomic across embedding and insertion: an insert failure after a
// successful embed wastes the embedding call but leaves no partial
// rows, as the insert runs in one transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embed(ctx, texts, taskTypeDocument)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	rows := make([]ChunkRow, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Meta)
		if err != nil {
			return 0, fmt.Errorf("encoding chunk metadata: %w", err)
		}
		rows[i] = ChunkRow{
			Content:   c.Content,
			Embedding: vectors[i],
			Metadata:  meta,
		}
	}

	if err := s.queries.InsertChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("inserting chunks: %w", err)
	}

	s.logger.Debug("chunks stored",
		"count", len(rows),
		"session_id", chunks[0].Meta.SessionID)

	return len(rows), nil
}

// Search embeds the query and returns the most similar chunks,
// best match first. Options narrow the result set; use WithSession to
// keep retrieval inside one session's documents.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	vectors, err := s.embed(ctx, []string{query}, taskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter []byte
	if len(cfg.filter) > 0 {
		filter, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("encoding search filter: %w", err)
		}
	}

	rows, err := s.queries.SearchChunks(ctx, SearchParams{
		Embedding: vectors[0],
		Filter:    filter,
		Limit:     cfg.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		r := Result{Content: row.Content, Similarity: row.Similarity}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &r.Meta); err != nil {
				return nil, fmt.Errorf("decoding chunk metadata: %w", err)
			}
		}
		results = append(results, r)
	}

	s.logger.Debug("search completed", "results", len(results), "top_k", cfg.topK)

	return results, nil
}

// Count returns the number of stored chunks for a session.
func (s *Store) Count(ctx context.Context, sessionID string) (int64, error) {
	filter, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("encoding count filter: %w", err)
	}
	n, err := s.queries.CountChunks(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// DeleteSession removes every chunk owned by the session and returns
// the number deleted.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	filter, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("encoding delete filter: %w", err)
	}
	n, err := s.queries.DeleteChunks(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("deleting session chunks: %w", err)
	}

	s.logger.Debug("session chunks deleted", "session_id", sessionID, "count", n)

	return n, nil
}

// embed submits texts as one batch with the given task type and
// converts the response to pgvector vectors.
func (s *Store) embed(ctx context.Context, texts []string, taskType string) ([]pgvector.Vector, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: docs,
		Options: &genai.EmbedContentConfig{
			TaskType:             taskType,
			OutputDimensionality: &dim,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(docs) {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrEmbeddingMismatch, len(resp.Embeddings), len(docs))
	}

	vectors := make([]pgvector.Vector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = pgvector.NewVector(e.Embedding)
	}
	return vectors, nil
}
