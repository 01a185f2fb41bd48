package rag

import (
	"context"

	"github.com/docsage/docsage/internal/knowledge"
)

// mockStore implements ChunkStore with function fields for behavior
// injection and call recording.
type mockStore struct {
	addFunc    func(ctx context.Context, chunks []knowledge.Chunk) (int, error)
	searchFunc func(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)

	addedChunks   []knowledge.Chunk
	addCalls      int
	searchQueries []string
	lastOptsCount int
}

func (m *mockStore) AddChunks(ctx context.Context, chunks []knowledge.Chunk) (int, error) {
	m.addCalls++
	m.addedChunks = append(m.addedChunks, chunks...)
	if m.addFunc != nil {
		return m.addFunc(ctx, chunks)
	}
	return len(chunks), nil
}

func (m *mockStore) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	m.searchQueries = append(m.searchQueries, query)
	m.lastOptsCount = len(opts)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, opts...)
	}
	return nil, nil
}

// scriptedGenerator returns canned responses in order and records every
// request it receives.
type scriptedGenerator struct {
	responses []generatorStep
	requests  []GenerateRequest
}

type generatorStep struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return "", nil
	}
	step := g.responses[0]
	g.responses = g.responses[1:]
	return step.text, step.err
}

func parisResults() []knowledge.Result {
	meta := knowledge.ChunkMeta{SessionID: "sess-1", SourceName: "paris.txt", SourceType: "txt"}
	return []knowledge.Result{
		{Content: "Paris is the capital of France.", Meta: meta, Similarity: 0.93},
		{Content: "Paris has a population of about 2 million.", Meta: meta, Similarity: 0.88},
	}
}
