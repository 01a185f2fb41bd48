package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/app"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against ingested documents",
	Long: `Ask answers a single question grounded in previously ingested
documents. With --session the search is scoped to that session's
documents and the exchange is saved to its history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to scope the search to")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := checkRequiredEnv(); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
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

	q := rag.Question{Text: question}

	var sessionID uuid.UUID
	if askSession != "" {
		sessionID, err = uuid.Parse(askSession)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", askSession, err)
		}
		q.SessionID = sessionID.String()
		q.History, err = a.Sessions.RecentTurns(ctx, sessionID, rag.MaxHistoryTurns)
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
	}

	ans, err := a.Answerer.Ask(ctx, q)
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	if askSession != "" {
		if _, err := a.Sessions.AddMessage(ctx, sessionID, session.RoleUser, question); err != nil {
			return fmt.Errorf("saving question: %w", err)
		}
		if _, err := a.Sessions.AddMessage(ctx, sessionID, session.RoleModel, ans.Text); err != nil {
			return fmt.Errorf("saving answer: %w", err)
		}
	}

	fmt.Println(ans.Text)
	return nil
}
