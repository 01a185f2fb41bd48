// Package app provides application initialization and dependency
// injection. Setup wires configuration, database, Genkit and the
// pipeline components into a single container; Close releases them in
// reverse order.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Stores
	Knowledge *knowledge.Store
	Sessions  *session.Store

	// Pipelines
	Ingestor *rag.Ingestor
	Answerer *rag.Answerer
	Titler   *rag.Titler

	cancel context.CancelFunc
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}
	return nil
}

// Ready reports whether the app's dependencies are reachable. Used as
// the readiness probe of the HTTP server.
func (a *App) Ready(ctx context.Context) error {
	return a.DBPool.Ping(ctx)
}
