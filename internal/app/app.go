// Package app provides application initialization and dependency injection.
//
// App is the container that wires configuration, the database pool, Genkit,
// the FAQ retrieval system, the tool registry, the orchestrator and the HTTP
// server together. Setup builds it; Close releases it.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamanbank/assistant/internal/api"
	"github.com/zamanbank/assistant/internal/assistant"
	"github.com/zamanbank/assistant/internal/config"
	"github.com/zamanbank/assistant/internal/goals"
	"github.com/zamanbank/assistant/internal/knowledge"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit     *genkit.Genkit
	Pool       *pgxpool.Pool
	FAQ        *knowledge.System
	Comparator *goals.Comparator
	Assistant  *assistant.Assistant
	Server     *api.Server

	// cancel stops background goroutines (peer-feature refresh).
	cancel context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx, a.Config.ServerAddr, a.Logger)
}
