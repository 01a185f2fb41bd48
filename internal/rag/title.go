package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/log"
)

// FallbackTitle is used whenever title generation fails or produces
// nothing usable.
const FallbackTitle = "New Analysis"

const (
	titleInputRunes            = 1000
	titleMaxOutputTokens int32 = 20
	titleTimeout               = 5 * time.Second
)

const titlePromptTemplate = `Generate a very short, professional title (max 4-5 words) for the following text.
Return ONLY the title, no quotes or prefix.

Text:
%s
`

// Titler derives short session titles from document text.
type Titler struct {
	llm    Generator
	logger log.Logger
}

// NewTitler creates a Titler.
func NewTitler(llm Generator, logger log.Logger) *Titler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Titler{llm: llm, logger: logger}
}

// GenerateTitle produces a title from the first 1000 runes of text.
// It never fails: any error, timeout or empty output falls back to
// FallbackTitle.
func (t *Titler) GenerateTitle(ctx context.Context, text string) string {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	runes := []rune(text)
	if len(runes) > titleInputRunes {
		text = string(runes[:titleInputRunes])
	}

	title, err := t.llm.Generate(ctx, GenerateRequest{
		Prompt:          fmt.Sprintf(titlePromptTemplate, text),
		MaxOutputTokens: titleMaxOutputTokens,
	})
	if err != nil {
		t.logger.Warn("title generation failed, using fallback", "error", err)
		return FallbackTitle
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return FallbackTitle
	}
	return title
}
