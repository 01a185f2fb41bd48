// Package cmd provides the CLI commands for docsage.
//
// Commands:
//   - serve: HTTP API server (upload, ingest-text, chat, sessions)
//   - ingest: one-shot file ingestion into a session
//   - ask: one-shot question against a session's documents
//   - version: version information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "docsage",
	Short: "docsage - chat with your documents",
	Long: `docsage ingests documents into a session-scoped knowledge base and
answers questions grounded in their content. Run "docsage serve" to start
the HTTP API, or use "ingest" and "ask" for one-shot operations.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment lowers
// the level to debug.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// checkRequiredEnv verifies the Gemini API key is present before any
// model-backed command starts.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "docsage requires a Gemini API key to function.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return errors.New("GEMINI_API_KEY not set")
	}
	return nil
}
