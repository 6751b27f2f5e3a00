package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/zamanbank/assistant/db"
	"github.com/zamanbank/assistant/internal/analytics"
	"github.com/zamanbank/assistant/internal/api"
	"github.com/zamanbank/assistant/internal/assistant"
	"github.com/zamanbank/assistant/internal/config"
	"github.com/zamanbank/assistant/internal/conversation"
	"github.com/zamanbank/assistant/internal/goals"
	"github.com/zamanbank/assistant/internal/invest"
	"github.com/zamanbank/assistant/internal/knowledge"
	"github.com/zamanbank/assistant/internal/orchestrator"
	"github.com/zamanbank/assistant/internal/quickreply"
	"github.com/zamanbank/assistant/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not registered by the openai plugin", cfg.EmbedderModel)
	}

	faq, err := provideFAQ(ctx, g, pool, embedder, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.FAQ = faq

	registry, comparator, err := provideTools(g, pool, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Comparator = comparator

	// Model calls across the whole app share one limiter: chat, quick
	// replies and FAQ synthesis all draw from the same API quota.
	limiter := provideLimiter(cfg)

	orch, err := orchestrator.New(
		orchestrator.NewGenkitCompleter(g, cfg.ChatModel, limiter, cfg.ModelTimeout()),
		registry, faq, logger, cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	suggestTool := quickreply.RegisterSuggestTool(g)
	suggester, err := quickreply.New(
		orchestrator.NewGenkitCompleter(g, cfg.QuickReplyModel, limiter, cfg.ModelTimeout()),
		faq, faq, []ai.ToolRef{suggestTool},
		quickreply.Config{FilterEnabled: cfg.QuickReplyFilter}, logger)
	if err != nil {
		return nil, err
	}

	asst, err := assistant.New(conversation.NewStore(), orch, suggester, logger)
	if err != nil {
		return nil, err
	}
	a.Assistant = asst

	server, err := api.NewServer(api.ServerConfig{
		Logger:    logger,
		Assistant: asst,
		Pool:      pool,
	})
	if err != nil {
		return nil, err
	}
	a.Server = server

	// Background lifecycle: peer-feature refresh loop.
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go comparator.Run(bgCtx, cfg.GoalsRefreshInterval())

	return a, nil
}

// provideDBPool runs migrations, then creates and pings the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DSN(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the OpenAI-compatible plugin.
// The plugin reads OPENAI_API_KEY from the environment and auto-registers
// models and embedders.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with openai provider")
	}
	return g, nil
}

// provideFAQ builds the retrieval system and seeds the built-in FAQ corpus.
func provideFAQ(ctx context.Context, g *genkit.Genkit, pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger *slog.Logger) (*knowledge.System, error) {
	store := knowledge.NewStore(knowledge.NewPostgresQuerier(pool), embedder, logger)

	seeder := knowledge.NewSeeder(store, logger)
	count, err := seeder.IndexAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeding FAQ corpus: %w", err)
	}
	logger.Info("FAQ corpus seeded", "documents", count)

	synth := knowledge.NewGenkitSynthesizer(g, cfg.SynthesisModel)
	return knowledge.NewSystem(store, synth, knowledge.SystemConfig{
		TopK:      cfg.FAQTopK,
		Threshold: float32(cfg.FAQThreshold),
		CacheSize: cfg.FAQCacheSize,
	}, logger), nil
}

// provideTools wires the tool handler with its data-layer dependencies and
// registers the tools with Genkit.
func provideTools(g *genkit.Genkit, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) (*tools.Registry, *goals.Comparator, error) {
	rates := analytics.NewHTTPRates(cfg.RatesURL, nil)
	summarizer := analytics.NewService(analytics.NewPostgresQuerier(pool), rates, logger)

	advisor := invest.NewAdvisor(nil)
	comparator := goals.NewComparator(goals.NewPostgresQuerier(pool), logger)

	handler, err := tools.NewHandler(summarizer, advisor, comparator)
	if err != nil {
		return nil, nil, fmt.Errorf("creating tool handler: %w", err)
	}

	registry, err := tools.RegisterAll(g, handler)
	if err != nil {
		return nil, nil, fmt.Errorf("registering tools: %w", err)
	}
	return registry, comparator, nil
}

// provideLimiter builds the shared model-call rate limiter.
func provideLimiter(cfg *config.Config) *rate.Limiter {
	perSecond := cfg.ModelRatePerMinute / 60
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := int(cfg.ModelRatePerMinute)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
