package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/session"
)

// RefusalAnswer is the exact sentence returned when the session's
// documents do not contain the answer.
const RefusalAnswer = "I don't know based on the provided document."

const (
	answerMaxOutputTokens int32 = 2048
	retrievalTopK               = knowledge.DefaultTopK
)

const answerPromptTemplate = `You are an expert document analyst and helpful AI assistant designed to extract insights from user documents.

Instructions:
1. Answer the question using ONLY the provided context below.
2. If the answer is not present in the context, say: "I don't know based on the provided document."
3. Do not make up information or use outside knowledge.
4. Format your answer nicely using Markdown. Use bullet points for lists, bold text for key terms, and code blocks if relevant.
5. Be concise but thorough.

Context:
%s

Question:
%s
`

// Question is one query against a session's documents.
type Question struct {
	SessionID string
	Text      string
	History   []session.Turn
}

// Answer is the outcome of a query.
type Answer struct {
	Text           string
	Sources        []knowledge.Result
	RewrittenQuery string // Equals the question when no rewrite happened
}

// Answerer runs the query pipeline: history-aware rewrite, session-
// scoped retrieval, grounded generation.
type Answerer struct {
	store  ChunkStore
	llm    Generator
	logger log.Logger
}

// NewAnswerer creates an Answerer.
func NewAnswerer(store ChunkStore, llm Generator, logger log.Logger) *Answerer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Answerer{store: store, llm: llm, logger: logger}
}

// Ask answers a question from the session's documents. Retrieval uses
// the rewritten question; generation receives the original one, so a
// bad rewrite can cost retrieval quality but never changes what is
// being answered. When nothing relevant is stored, the refusal answer
// comes back without a generation call.
func (a *Answerer) Ask(ctx context.Context, q Question) (*Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuestion
	}

	searchQuery := a.rewriteQuestion(ctx, q.Text, q.History)

	results, err := a.retrieve(ctx, searchQuery, q.SessionID)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		a.logger.Debug("no context found", "session_id", q.SessionID, "query", searchQuery)
		return &Answer{Text: RefusalAnswer, RewrittenQuery: searchQuery}, nil
	}

	text, err := a.llm.Generate(ctx, GenerateRequest{
		Prompt:          fmt.Sprintf(answerPromptTemplate, assembleContext(results), q.Text),
		MaxOutputTokens: answerMaxOutputTokens,
	})
	if err != nil {
		return nil, newServiceError("generation", err)
	}

	a.logger.Debug("question answered",
		"session_id", q.SessionID,
		"sources", len(results))

	return &Answer{
		Text:           text,
		Sources:        results,
		RewrittenQuery: searchQuery,
	}, nil
}

// Retrieve returns the raw context chunks for a question without
// generating an answer. Returns ErrNoContext when nothing matches.
func (a *Answerer) Retrieve(ctx context.Context, q Question) ([]knowledge.Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuestion
	}

	searchQuery := a.rewriteQuestion(ctx, q.Text, q.History)
	results, err := a.retrieve(ctx, searchQuery, q.SessionID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoContext
	}
	return results, nil
}

func (a *Answerer) retrieve(ctx context.Context, query, sessionID string) ([]knowledge.Result, error) {
	opts := []knowledge.SearchOption{knowledge.WithTopK(retrievalTopK)}
	if sessionID != "" {
		opts = append(opts, knowledge.WithSession(sessionID))
	}

	results, err := a.store.Search(ctx, query, opts...)
	if err != nil {
		return nil, newServiceError("embedding", err)
	}
	return results, nil
}

// assembleContext joins chunk contents in similarity order, separated
// by blank lines.
func assembleContext(results []knowledge.Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}
