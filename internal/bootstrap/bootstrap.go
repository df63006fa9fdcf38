package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/acekavi/docqa/internal/config"
	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
	"github.com/acekavi/docqa/internal/core/usecase"
	"github.com/acekavi/docqa/internal/infrastructure/chunking"
	"github.com/acekavi/docqa/internal/infrastructure/extractor"
	"github.com/acekavi/docqa/internal/infrastructure/lexical"
	"github.com/acekavi/docqa/internal/infrastructure/llm/ollama"
	natsqueue "github.com/acekavi/docqa/internal/infrastructure/queue/nats"
	"github.com/acekavi/docqa/internal/infrastructure/repository/memory"
	"github.com/acekavi/docqa/internal/infrastructure/rerank"
	"github.com/acekavi/docqa/internal/infrastructure/resilience"
	"github.com/acekavi/docqa/internal/infrastructure/schema"
	"github.com/acekavi/docqa/internal/infrastructure/storage/localfs"
	vectormemory "github.com/acekavi/docqa/internal/infrastructure/vector/memory"
	"github.com/acekavi/docqa/internal/infrastructure/vector/qdrant"
	"github.com/acekavi/docqa/internal/observability/logging"
)

// Container holds every wired dependency. The api, worker and mcp binaries
// share one composition root so their stacks cannot drift apart.
type Container struct {
	Config *config.Config
	Log    *slog.Logger

	Queue *natsqueue.Queue

	Ingestor   *usecase.Ingestor
	Processor  *usecase.Processor
	Registry   ports.DocumentRegistry
	Questions  *usecase.QueryService
	Extraction *usecase.ExtractionLoop
}

type Options struct {
	// LogWriter overrides the log destination; defaults to stdout.
	LogWriter io.Writer
}

// New builds the full dependency graph for the named service. The returned
// cleanup closes long-lived connections.
func New(serviceName string) (*Container, func(), error) {
	return NewWithOptions(serviceName, Options{})
}

func NewWithOptions(serviceName string, opts Options) (*Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stdout
	}
	log := logging.NewJSONLoggerTo(logWriter, serviceName, cfg.LogLevel)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	storage, err := localfs.New(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATS.URL, cfg.NATS.Subject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init queue: %w", err)
	}
	cleanup := func() { queue.Close() }

	vectors, err := buildVectorIndex(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	lexicalIndex := lexical.New()
	registry := memory.NewRegistry()

	ollamaClient := ollama.New(cfg.Ollama.URL, cfg.Ollama.GenerationModel, cfg.Ollama.EmbeddingModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient, ollama.EmbedderOptions{
		BatchSize:      cfg.Ollama.EmbedBatchSize,
		Concurrency:    cfg.Ollama.EmbedConcurrency,
		RequestsPerSec: cfg.Ollama.EmbedRequestsPerSec,
	})
	generator := ollama.NewGenerator(ollamaClient)
	crossEncoder := rerank.New(cfg.Reranker.URL, cfg.Reranker.Model, executor)

	splitter, err := chunking.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	retriever, err := usecase.NewRetriever(embedder, vectors, lexicalIndex, usecase.RetrieverConfig{
		Mode:             usecase.RetrievalMode(cfg.Retrieval.Mode),
		HybridAlpha:      cfg.Retrieval.HybridAlpha,
		HybridCandidates: cfg.Retrieval.HybridCandidates,
		MMRLambda:        cfg.Retrieval.MMRLambda,
		MMRPoolK:         cfg.Retrieval.MMRPoolK,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	extractionSchema, err := loadSchema(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	container := &Container{
		Config:   cfg,
		Log:      log,
		Queue:    queue,
		Registry: registry,
		Ingestor: usecase.NewIngestor(log, registry, storage, queue),
		Processor: usecase.NewProcessor(
			log, registry, extractor.NewDispatcher(storage), splitter, embedder, vectors, lexicalIndex,
		),
		Questions: usecase.NewQueryService(log, retriever, crossEncoder, generator, vectors, usecase.QueryConfig{
			DefaultTopK:    cfg.Retrieval.TopK,
			MinScore:       cfg.Retrieval.MinScore,
			FallbackAnswer: cfg.Retrieval.FallbackAnswer,
			RerankInitialK: cfg.Retrieval.RerankInitialK,
			Collection:     cfg.Vector.Collection,
		}),
		Extraction: usecase.NewExtractionLoop(log, generator, extractionSchema, cfg.Extraction.MaxRetries),
	}
	return container, cleanup, nil
}

func buildVectorIndex(cfg *config.Config) (ports.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return vectormemory.New(), nil
	case "qdrant":
		return qdrant.New(cfg.Vector.QdrantURL, cfg.Vector.Collection), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "vector backend",
			fmt.Errorf("unknown backend %q", cfg.Vector.Backend))
	}
}

func loadSchema(cfg *config.Config) (ports.ExtractionSchema, error) {
	if cfg.Extraction.SchemaPath == "" {
		return schema.Default(), nil
	}
	return schema.LoadFromFile(cfg.Extraction.SchemaPath)
}
