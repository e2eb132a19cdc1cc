package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/healthqa/testcase-search/internal/config"
	"github.com/healthqa/testcase-search/internal/core/ports"
	"github.com/healthqa/testcase-search/internal/core/usecase"
	"github.com/healthqa/testcase-search/internal/infrastructure/extractor"
	"github.com/healthqa/testcase-search/internal/infrastructure/extractor/pdfplan"
	"github.com/healthqa/testcase-search/internal/infrastructure/extractor/spreadsheet"
	"github.com/healthqa/testcase-search/internal/infrastructure/llm/ollama"
	"github.com/healthqa/testcase-search/internal/infrastructure/llm/openaicompat"
	"github.com/healthqa/testcase-search/internal/infrastructure/queue/nats"
	"github.com/healthqa/testcase-search/internal/infrastructure/repository/postgres"
	"github.com/healthqa/testcase-search/internal/infrastructure/resilience"
	"github.com/healthqa/testcase-search/internal/infrastructure/storage/localfs"
	"github.com/healthqa/testcase-search/internal/infrastructure/vector/qdrant"
	"github.com/healthqa/testcase-search/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.CaseRepository
	IngestUC  ports.WorkbookIngestor
	ProcessUC ports.WorkbookProcessor
	SearchUC  ports.CaseSearcher
	CurateUC  ports.CaseCurator

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewCaseRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(ollama.Options{
		BaseURL:    cfg.OllamaURL,
		GenModel:   cfg.OllamaGenModel,
		EmbedModel: cfg.OllamaEmbedModel,
		Executor:   executor,
	})
	generator := ollama.NewGenerator(ollamaClient)
	reranker := ollama.NewReranker(ollamaClient)

	embedder, err := buildEmbedder(cfg, ollamaClient)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	xlsxExtractor := spreadsheet.NewExtractor(storage)
	pdfExtractor := pdfplan.NewExtractor(storage)
	dispatcher := extractor.NewDispatcher(xlsxExtractor, pdfExtractor)

	ingestUC := usecase.NewIngestWorkbookUseCase(repo, storage, queue)
	processUC := usecase.NewProcessWorkbookUseCase(repo, dispatcher, embedder, index)
	searchUC := usecase.NewSearchUseCase(embedder, index, reranker, usecase.SearchTimeouts{})
	curateUC := usecase.NewCurateUseCase(searchUC, generator)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Repo:  repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,
		CurateUC:  curateUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// buildEmbedder picks the embedding provider. Ollama is the default;
// EMBED_PROVIDER=openai switches to any OpenAI-compatible endpoint.
func buildEmbedder(cfg config.Config, ollamaClient *ollama.Client) (ports.Embedder, error) {
	switch cfg.EmbedProvider {
	case "", "ollama":
		return ollama.NewEmbedder(ollamaClient, rate.Limit(cfg.EmbedRateLimit), cfg.EmbedRateBurst), nil
	case "openai":
		return openaicompat.NewEmbedder(openaicompat.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbedModel,
		})
	default:
		return nil, fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
