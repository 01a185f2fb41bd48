// Package knowledge persists document chunks with vector embeddings and
// serves similarity search over them.
//
// The Store pairs a genkit ai.Embedder with a PostgreSQL + pgvector
// backend. Chunks are embedded with the document task type at ingestion
// and queries with the query task type at search time; some hosted
// embedding models produce different vectors per intended use, and mixing
// the modes degrades retrieval quality.
//
// Every chunk carries its owning session identifier in JSONB metadata.
// Search always filters on metadata, which is the privacy boundary
// between sessions: results never include chunks whose metadata fails
// the filter.
package knowledge
