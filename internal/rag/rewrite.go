package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/session"
)

// MaxHistoryTurns bounds how much conversation feeds the rewriter.
const MaxHistoryTurns = 6

const (
	rewriteTemperature     float32 = 0.1
	rewriteMaxOutputTokens int32   = 256
)

const rewritePromptTemplate = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history.

Rules:
1. REPLACE specific pronouns (it, this, he, she, they) with the actual nouns they refer to from the history.
2. If the user asks "how much?", "what is the total?", "who is he?", SPECIFY what they are asking about based on previous messages.
3. If the question is already standalone, return it exactly as is.
4. Do NOT answer the question.

Chat History:
%s

Latest Question: %s

Standalone Question:`

// rewriteQuestion turns a follow-up question into a standalone one
// using the recent history. With empty history the question is returned
// untouched, and a rewrite failure falls back to the original question
// rather than failing the whole query.
func (a *Answerer) rewriteQuestion(ctx context.Context, question string, history []session.Turn) string {
	if len(history) == 0 {
		return question
	}
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	rewritten, err := a.llm.Generate(ctx, GenerateRequest{
		Prompt:          fmt.Sprintf(rewritePromptTemplate, formatHistory(history), question),
		Temperature:     rewriteTemperature,
		MaxOutputTokens: rewriteMaxOutputTokens,
	})
	if err != nil || rewritten == "" {
		a.logger.Warn("query rewrite failed, using original question", "error", err)
		return question
	}

	a.logger.Debug("query rewritten", "original", question, "rewritten", rewritten)
	return rewritten
}

func formatHistory(history []session.Turn) string {
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = t.Role + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}
