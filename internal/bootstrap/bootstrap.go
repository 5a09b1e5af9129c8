package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/core/usecase"
	"github.com/kirillkom/docqa/internal/infrastructure/chunking"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
	pdfextractor "github.com/kirillkom/docqa/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/openai"
	"github.com/kirillkom/docqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Docs      ports.DocumentRepository
	Batches   ports.BatchRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	BatchUC   ports.BatchService
	Answerer  ports.QueryAnswerer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	batches := postgres.NewBatchRepository(db)
	if err := batches.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure batches schema: %w", err)
	}
	if err := batches.EnsureDefaultBatch(ctx, cfg.DefaultBatchName); err != nil {
		return nil, fmt.Errorf("ensure default batch: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		CallTimeout: time.Duration(cfg.LLMCallTimeoutSeconds) * time.Second,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder, model, err := buildLLMProvider(cfg, executor)
	if err != nil {
		return nil, err
	}

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewRouter(
		pdfextractor.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	ingestUC := usecase.NewIngestDocumentUseCase(docs, batches, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docs, batches, extract, chunker, embedder, index)
	batchUC := usecase.NewBatchUseCase(batches)
	engine := usecase.NewQueryEngine(embedder, index, model, usecase.NewSubstringMatcher(), docs, batches, engineConfig(cfg))

	return &App{
		Config:  cfg,
		Queue:   queue,
		Docs:    docs,
		Batches: batches,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		BatchUC:   batchUC,
		Answerer:  engine,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildLLMProvider(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.LanguageModel, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return ollama.NewEmbedder(client), ollama.NewLanguageModel(client), nil
	case "openai":
		client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel, executor)
		return openai.NewEmbedder(client), openai.NewLanguageModel(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func engineConfig(cfg config.Config) usecase.EngineConfig {
	out := usecase.DefaultEngineConfig()
	out.TopKPerSubQuery = cfg.RAGTopKPerSubQuery
	out.CandidateFactor = cfg.RAGCandidateFactor
	out.FusionStrategy = cfg.RAGFusionStrategy
	out.VectorWeight = cfg.RAGVectorWeight
	out.KeywordWeight = cfg.RAGKeywordWeight
	out.RRFK = cfg.RAGFusionRRFK
	out.PerSourceQuota = cfg.RAGPerSourceQuota
	out.GeneralQuota = cfg.RAGGeneralQuota
	out.GlobalTopN = cfg.RAGGlobalTopN
	out.MaxConcurrency = cfg.RAGMaxConcurrency
	out.MinSubQueries = cfg.RAGMinSubQueries
	out.MaxSubQueries = cfg.RAGMaxSubQueries
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
