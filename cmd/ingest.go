package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/app"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/rag"
)

var ingestSession string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into a session",
	Long: `Ingest extracts text from the given file, chunks and embeds it, and
stores the chunks under a session. Without --session a new session is
created and its id printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSession, "session", "", "session id (creates a new session if empty)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := checkRequiredEnv(); err != nil {
		return err
	}

	path := args[0]
	format, err := extract.ParseFormat(filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("unsupported file type %q: %w", filepath.Ext(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	fileName := filepath.Base(path)

	var sessionID uuid.UUID
	if ingestSession != "" {
		sessionID, err = uuid.Parse(ingestSession)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", ingestSession, err)
		}
		if _, err := a.Sessions.Get(ctx, sessionID); err != nil {
			return fmt.Errorf("looking up session: %w", err)
		}
	} else {
		sess, err := a.Sessions.Create(ctx, fileName)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
		fmt.Printf("Created session %s\n", sessionID)
	}

	res, err := a.Ingestor.IngestDocument(ctx, rag.Document{
		Data:       data,
		Format:     format,
		SessionID:  sessionID.String(),
		SourceName: fileName,
	})
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", fileName, err)
	}

	fmt.Printf("Ingested %s: %d chunks\n", fileName, res.ChunkCount)
	return nil
}
