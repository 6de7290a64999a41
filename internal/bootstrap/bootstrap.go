package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kirillkom/manual-rag/internal/config"
	"github.com/kirillkom/manual-rag/internal/core/ports"
	"github.com/kirillkom/manual-rag/internal/core/usecase"
	"github.com/kirillkom/manual-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/manual-rag/internal/infrastructure/extractor"
	"github.com/kirillkom/manual-rag/internal/infrastructure/extractor/excel"
	"github.com/kirillkom/manual-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/manual-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/manual-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/manual-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/manual-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/manual-rag/internal/infrastructure/sources"
	"github.com/kirillkom/manual-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/manual-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config

	PopulateUC ports.DatabasePopulator
	QueryUC    ports.QuestionAnswerer
	EvalUC     ports.AnswerEvaluator
	Metrics    *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewSourceRepository(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	plain := plaintext.New()
	dispatcher := extractor.NewDispatcher(map[string]ports.PageExtractor{
		".pdf":  pdf.New(),
		".txt":  plain,
		".md":   plain,
		".xlsx": excel.New(),
	})

	store, err := sources.NewDirStore(cfg.DocumentsDir, dispatcher.Extensions())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init documents dir: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	expander := ollama.NewExpander(ollamaClient)
	judge := ollama.NewJudge(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	var limiter *rate.Limiter
	if cfg.EmbedRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRPS), 1)
	}

	populateUC := usecase.NewPopulateUseCase(registry, store, dispatcher, chunker, embedder, vectorDB, cfg.EmbedBatchSize, limiter)
	queryUC := usecase.NewQueryUseCase(embedder, vectorDB, expander, generator, usecase.QueryConfig{
		Variants:      cfg.QueryVariants,
		TopK:          cfg.RAGTopK,
		ContextLimit:  cfg.RAGContextLimit,
		RetrievalMode: cfg.RAGRetrievalMode,
		FusionRRFK:    cfg.RAGFusionRRFK,
		RerankTopN:    cfg.RAGRerankTopN,
	})
	pipelineMetrics := metrics.NewPipelineMetrics(service)
	answerer := &instrumentedAnswerer{next: queryUC, metrics: pipelineMetrics, service: service}
	evalUC := usecase.NewEvalUseCase(answerer, judge)

	return &App{
		Config: cfg,

		PopulateUC: &instrumentedPopulator{next: populateUC, metrics: pipelineMetrics, service: service},
		QueryUC:    answerer,
		EvalUC:     evalUC,
		Metrics:    pipelineMetrics,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
