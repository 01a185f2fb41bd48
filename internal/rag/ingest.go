package rag

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/splitter"
)

// Ingestion limits, enforced on extracted content before any embedding
// call so oversized documents never consume embedding quota.
const (
	MaxPDFPages  = 20
	MaxWords     = 30000
	MaxTextChars = 50000
)

// SnippetRunes bounds the text preview returned from ingestion.
const SnippetRunes = 1000

// SourceTypeText marks pasted text in chunk metadata; file uploads use
// their declared format as the source type.
const SourceTypeText = "text"

// SourceNamePastedText is the provenance label for pasted text.
const SourceNamePastedText = "Pasted Text"

// ChunkStore is the vector store dependency of the pipelines,
// implemented by knowledge.Store.
type ChunkStore interface {
	AddChunks(ctx context.Context, chunks []knowledge.Chunk) (int, error)
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Document is a file buffer submitted for ingestion.
type Document struct {
	Data       []byte
	Format     extract.Format
	SessionID  string
	SourceName string
}

// IngestResult reports what a successful ingestion produced.
type IngestResult struct {
	ChunkCount int
	Snippet    string // First 1000 runes of the extracted text
	Meta       extract.Metadata
}

// Ingestor runs the ingestion pipeline: extract, limit-check, split,
// embed and store.
type Ingestor struct {
	store    ChunkStore
	splitter *splitter.Splitter
	logger   log.Logger
}

// NewIngestor creates an Ingestor with the default splitter.
func NewIngestor(store ChunkStore, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{
		store:    store,
		splitter: splitter.New(),
		logger:   logger,
	}
}

// IngestDocument extracts text from the document, enforces the format's
// limits, splits it into chunks and stores them under the document's
// session. A limit violation returns a LimitError before the embedder
// is touched.
func (in *Ingestor) IngestDocument(ctx context.Context, doc Document) (*IngestResult, error) {
	if len(doc.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	res, err := extract.Extract(doc.Data, doc.Format)
	if err != nil {
		return nil, fmt.Errorf("extracting %s document: %w", doc.Format, err)
	}

	if err := checkLimits(res.Meta); err != nil {
		return nil, err
	}

	result, err := in.ingest(ctx, res.Text, knowledge.ChunkMeta{
		SessionID:  doc.SessionID,
		SourceName: doc.SourceName,
		SourceType: string(doc.Format),
	})
	if err != nil {
		return nil, err
	}
	result.Meta = res.Meta

	in.logger.Info("document ingested",
		"session_id", doc.SessionID,
		"source", doc.SourceName,
		"format", doc.Format,
		"chunks", result.ChunkCount)

	return result, nil
}

// IngestText ingests raw pasted text. Text over MaxTextChars runes is
// rejected before splitting.
func (in *Ingestor) IngestText(ctx context.Context, text, sessionID string) (*IngestResult, error) {
	chars := extract.CharCount(text)
	if chars == 0 {
		return nil, ErrEmptyDocument
	}
	if chars > MaxTextChars {
		return nil, &LimitError{Limit: "characters", Max: MaxTextChars, Actual: chars}
	}

	result, err := in.ingest(ctx, text, knowledge.ChunkMeta{
		SessionID:  sessionID,
		SourceName: SourceNamePastedText,
		SourceType: SourceTypeText,
	})
	if err != nil {
		return nil, err
	}
	result.Meta = extract.TextMeta{WordCount: extract.WordCount(text), CharCount: chars}

	in.logger.Info("text ingested",
		"session_id", sessionID,
		"chars", chars,
		"chunks", result.ChunkCount)

	return result, nil
}

func (in *Ingestor) ingest(ctx context.Context, text string, meta knowledge.ChunkMeta) (*IngestResult, error) {
	pieces := in.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, ErrEmptyDocument
	}

	chunks := make([]knowledge.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = knowledge.Chunk{Content: p, Meta: meta}
	}

	n, err := in.store.AddChunks(ctx, chunks)
	if err != nil {
		return nil, newServiceError("embedding", err)
	}

	return &IngestResult{
		ChunkCount: n,
		Snippet:    snippet(text),
	}, nil
}

// checkLimits enforces the per-format size limits from the extraction
// metadata. PDFs are bounded by real page count, everything else by
// word count.
func checkLimits(meta extract.Metadata) error {
	switch m := meta.(type) {
	case extract.PDFMeta:
		if m.PageCount > MaxPDFPages {
			return &LimitError{Limit: "pages", Max: MaxPDFPages, Actual: m.PageCount}
		}
	case extract.WordMeta:
		if m.WordCount > MaxWords {
			return &LimitError{Limit: "words", Max: MaxWords, Actual: m.WordCount}
		}
	case extract.TextMeta:
		if m.WordCount > MaxWords {
			return &LimitError{Limit: "words", Max: MaxWords, Actual: m.WordCount}
		}
	}
	return nil
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= SnippetRunes {
		return text
	}
	return string(runes[:SnippetRunes])
}
