package app

import (
	"context"
	"log/slog"

	"MarketBridge/internal/config"
	"MarketBridge/internal/httpserver"
	"MarketBridge/internal/infrastructure/extractor"
	"MarketBridge/internal/infrastructure/llm"
	"MarketBridge/internal/infrastructure/naver"
	"MarketBridge/internal/infrastructure/storage"
	"MarketBridge/internal/infrastructure/webcontext"
	"MarketBridge/internal/logging"
	"MarketBridge/internal/payload"
	"MarketBridge/internal/ports"
	"MarketBridge/internal/pricing"
	"MarketBridge/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	server *httpserver.Server
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	facts := extractor.NewExtractor(nil, baseLogger.With("component", "extractor"))
	webCtx := webcontext.NewProvider(nil, cfg.Search, baseLogger.With("component", "webcontext"))
	enricher := llm.NewEnricher(cfg.LLM, baseLogger.With("component", "llm"))
	publisher := naver.NewPublisher(cfg.Naver, baseLogger.With("component", "naver"))

	var repository ports.RunRepository
	if cfg.Database.DSN != "" {
		repo, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("run history disabled", "error", err)
		} else {
			repository = repo
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Cfg:        cfg,
		Extractor:  facts,
		Context:    webCtx,
		Enricher:   enricher,
		Publisher:  publisher,
		Builder:    payload.NewBuilder(cfg.Naver.Payload),
		Calculator: pricing.NewCalculator(cfg.Pricing),
		Repository: repository,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	server := httpserver.New(cfg, pipeline, baseLogger.With("component", "http"))
	return &Application{cfg: cfg, server: server}
}

// Run serves the HTTP API until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}
