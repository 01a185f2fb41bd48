package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/docsage/docsage/db"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

// Setup creates and initializes the application. Call Close to release
// the returned App's resources.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.DBPool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai plugin")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(
		knowledge.NewPGQuerier(pool),
		embedder,
		logger.With("component", "knowledge"),
	)
	a.Sessions = session.New(
		session.NewPGQuerier(pool),
		logger.With("component", "session"),
	)

	llm := rag.NewGenerator(g, qualifiedModelName(cfg.ModelName))
	a.Ingestor = rag.NewIngestor(a.Knowledge, logger.With("component", "ingest"))
	a.Answerer = rag.NewAnswerer(a.Knowledge, llm, logger.With("component", "answer"))
	a.Titler = rag.NewTitler(llm, logger.With("component", "title"))

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
	)
	return a, nil
}

// qualifiedModelName prefixes bare Gemini model names with the googleai
// provider so genkit can resolve them. Names that already carry a
// provider pass through unchanged.
func qualifiedModelName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "googleai/" + name
}
