package knowledge

// ChunkMeta is the metadata stored with every chunk. SessionID scopes
// retrieval; SourceName and SourceType describe provenance.
type ChunkMeta struct {
	SessionID  string `json:"session_id"`
	SourceName string `json:"source_name"`
	SourceType string `json:"source_type"`
}

// Chunk is a bounded slice of extracted text awaiting storage.
// Chunks are immutable once written; they are created in bulk per
// ingestion call and deleted only with their owning session.
type Chunk struct {
	Content string
	Meta    ChunkMeta
}

// Result is a single search hit with its similarity score.
type Result struct {
	Content    string
	Meta       ChunkMeta
	Similarity float32 // Cosine similarity (1 = identical direction)
}

// DefaultTopK is the result cardinality used for question answering.
const DefaultTopK int32 = 15

// SearchOption configures search behavior using functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int32
	filter map[string]string
}

// WithTopK sets the maximum number of results to return.
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter adds a metadata equality filter. Multiple calls combine
// with AND logic.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithSession filters results to chunks owned by the given session.
func WithSession(sessionID string) SearchOption {
	return WithFilter("session_id", sessionID)
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: DefaultTopK}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
