package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/processedornot/scanner/internal/config"
	"github.com/processedornot/scanner/internal/core/ports"
	"github.com/processedornot/scanner/internal/core/usecase"
	llmopenai "github.com/processedornot/scanner/internal/infrastructure/llm/openai"
	"github.com/processedornot/scanner/internal/infrastructure/providers"
	natsqueue "github.com/processedornot/scanner/internal/infrastructure/queue/nats"
	"github.com/processedornot/scanner/internal/infrastructure/repository/postgres"
	"github.com/processedornot/scanner/internal/infrastructure/resilience"
	"github.com/processedornot/scanner/internal/observability/logging"
	"github.com/processedornot/scanner/internal/observability/metrics"
)

// App wires the shared infrastructure for the api and worker binaries.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    *natsqueue.Queue
	Products ports.ProductStore
	History  ports.SearchHistoryStore
	Lookup   ports.ProductLookupService
	Backfill ports.GlycemicBackfiller
	Metrics  *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	productRepo := postgres.NewProductRepository(db)
	if err := productRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure products schema: %w", err)
	}
	historyRepo := postgres.NewSearchHistoryRepository(db)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)

	model := llmopenai.New(
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		cfg.OpenAIModel,
		resilience.NewExecutor(resilience.DefaultConfig()),
	).WithObserver(httpMetrics, service)

	cascadeCfg, err := providers.LoadCascadeConfig(cfg.ProvidersConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load cascade config: %w", err)
	}
	cascade, err := providers.BuildCascade(cascadeCfg, providers.RegistryOptions{
		Timeout:      time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
		RateLimitRPS: cfg.ProviderRateLimitRPS,
		RateBurst:    cfg.ProviderRateBurst,
		Keys: providers.APIKeys{
			USDA:          cfg.USDAAPIKey,
			BarcodeSpider: cfg.BarcodeSpiderAPIKey,
			EANSearch:     cfg.EANSearchAPIKey,
			ProductAPI:    cfg.ProductAPIKey,
			UPCDatabase:   cfg.UPCDatabaseAPIKey,
		},
		Executor: resilience.NewExecutor(resilience.ProviderConfig()),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build provider cascade: %w", err)
	}

	resolver := usecase.NewResolver(usecase.ResolverDeps{
		Providers:   cascade,
		Synthesizer: model,
		Ingredients: model,
		Glycemic:    model,
		Language:    cfg.DefaultLanguage,
		Logger:      logger,
		Observer:    httpMetrics,
		Service:     service,
	})
	lookup := usecase.NewLookupService(usecase.LookupServiceDeps{
		Resolver:    resolver,
		Store:       productRepo,
		History:     historyRepo,
		Publisher:   queue,
		Ingredients: model,
		Glycemic:    model,
		Language:    cfg.DefaultLanguage,
		Logger:      logger,
		Observer:    httpMetrics,
		Service:     service,
	})
	backfill := usecase.NewGlycemicBackfill(productRepo, model, cfg.DefaultLanguage, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Queue:    queue,
		Products: productRepo,
		History:  historyRepo,
		Lookup:   lookup,
		Backfill: backfill,
		Metrics:  httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
