package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// Generator is the model dependency of this package. Implemented by
// GenkitGenerator in production and by fakes in tests.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is one bounded text generation call.
type GenerateRequest struct {
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// GenkitGenerator runs generation through a genkit instance against a
// fixed model.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenerator creates a GenkitGenerator for the given model name
// (e.g. "googleai/gemini-2.0-flash").
func NewGenerator(g *genkit.Genkit, modelName string) *GenkitGenerator {
	return &GenkitGenerator{g: g, modelName: modelName}
}

func (gg *GenkitGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}

	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithPrompt(req.Prompt),
		ai.WithConfig(cfg),
	)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
