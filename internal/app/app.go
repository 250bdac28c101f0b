// Package app assembles the application: configuration, database pool,
// Genkit, stores, and the conversation engine, with ordered setup and
// teardown.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/internal/assistant"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/session"
)

// App holds the assembled application components.
// Create with Setup; release with Close.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Knowledge *knowledge.Store
	Ingestor  *knowledge.Ingestor
	Sessions  *session.Store
	Engine    *assistant.Engine

	otelCleanup func()
	dbCleanup   func()
}

// Close releases application resources in reverse initialization order.
// Safe to call on a partially initialized App and more than once.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
	return nil
}
