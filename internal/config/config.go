package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/acekavi/docqa/internal/core/domain"
)

type Config struct {
	LogLevel string

	API        APIConfig
	Worker     WorkerConfig
	Chunking   ChunkingConfig
	Retrieval  RetrievalConfig
	Extraction ExtractionConfig
	Ollama     OllamaConfig
	Reranker   RerankerConfig
	Vector     VectorConfig
	NATS       NATSConfig
	Storage    StorageConfig
}

type APIConfig struct {
	Port int
	// MaxConns caps concurrently accepted connections on the listener.
	MaxConns        int
	ShutdownTimeout time.Duration
}

type WorkerConfig struct {
	MetricsPort int
	// ProcessTimeout bounds the handling of one ingestion event.
	ProcessTimeout time.Duration
}

type ChunkingConfig struct {
	Size    int
	Overlap int
}

type RetrievalConfig struct {
	Mode             string
	TopK             int
	MinScore         float64
	FallbackAnswer   string
	HybridAlpha      float64
	HybridCandidates int
	MMRLambda        float64
	MMRPoolK         int
	RerankInitialK   int
}

type ExtractionConfig struct {
	MaxRetries int
	// SchemaPath points at a YAML JSON-Schema file. Empty selects the
	// built-in schema.
	SchemaPath string
}

type OllamaConfig struct {
	URL                 string
	GenerationModel     string
	EmbeddingModel      string
	EmbedBatchSize      int
	EmbedConcurrency    int
	EmbedRequestsPerSec float64
}

type RerankerConfig struct {
	URL   string
	Model string
}

type VectorConfig struct {
	// Backend selects the vector index implementation: memory or qdrant.
	Backend    string
	QdrantURL  string
	Collection string
}

type NATSConfig struct {
	URL     string
	Subject string
}

type StorageConfig struct {
	Path string
}

func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	var err error
	load := func(name string, dst *int, fallback int) {
		if err == nil {
			*dst, err = getEnvInt(name, fallback)
		}
	}
	loadFloat := func(name string, dst *float64, fallback float64) {
		if err == nil {
			*dst, err = getEnvFloat(name, fallback)
		}
	}
	loadDuration := func(name string, dst *time.Duration, fallback time.Duration) {
		if err == nil {
			*dst, err = getEnvDuration(name, fallback)
		}
	}

	load("API_PORT", &cfg.API.Port, 8080)
	load("API_MAX_CONNS", &cfg.API.MaxConns, 256)
	loadDuration("API_SHUTDOWN_TIMEOUT", &cfg.API.ShutdownTimeout, 15*time.Second)

	load("WORKER_METRICS_PORT", &cfg.Worker.MetricsPort, 9091)
	loadDuration("WORKER_PROCESS_TIMEOUT", &cfg.Worker.ProcessTimeout, 10*time.Minute)

	load("CHUNK_SIZE", &cfg.Chunking.Size, 512)
	load("CHUNK_OVERLAP", &cfg.Chunking.Overlap, 50)

	cfg.Retrieval.Mode = getEnv("RETRIEVAL_MODE", "vector")
	cfg.Retrieval.FallbackAnswer = getEnv("FALLBACK_ANSWER", "I don't know based on the available documents.")
	load("TOP_K", &cfg.Retrieval.TopK, 5)
	loadFloat("MIN_SCORE", &cfg.Retrieval.MinScore, 0)
	loadFloat("HYBRID_ALPHA", &cfg.Retrieval.HybridAlpha, 0.5)
	load("HYBRID_CANDIDATES", &cfg.Retrieval.HybridCandidates, 50)
	loadFloat("MMR_LAMBDA", &cfg.Retrieval.MMRLambda, 0.5)
	load("MMR_POOL_K", &cfg.Retrieval.MMRPoolK, 20)
	load("RERANK_INITIAL_K", &cfg.Retrieval.RerankInitialK, 20)

	load("EXTRACT_MAX_RETRIES", &cfg.Extraction.MaxRetries, 2)
	cfg.Extraction.SchemaPath = getEnv("EXTRACTION_SCHEMA_PATH", "")

	cfg.Ollama.URL = getEnv("OLLAMA_URL", "http://localhost:11434")
	cfg.Ollama.GenerationModel = getEnv("OLLAMA_GENERATION_MODEL", "llama3.1")
	cfg.Ollama.EmbeddingModel = getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text")
	load("EMBED_BATCH_SIZE", &cfg.Ollama.EmbedBatchSize, 32)
	load("EMBED_CONCURRENCY", &cfg.Ollama.EmbedConcurrency, 4)
	loadFloat("EMBED_REQUESTS_PER_SEC", &cfg.Ollama.EmbedRequestsPerSec, 0)

	cfg.Reranker.URL = getEnv("RERANKER_URL", "http://localhost:8000")
	cfg.Reranker.Model = getEnv("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2")

	cfg.Vector.Backend = getEnv("VECTOR_BACKEND", "memory")
	cfg.Vector.QdrantURL = getEnv("QDRANT_URL", "http://localhost:6333")
	cfg.Vector.Collection = getEnv("QDRANT_COLLECTION", "documents")

	cfg.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.NATS.Subject = getEnv("NATS_SUBJECT", "documents.ingested")

	cfg.Storage.Path = getEnv("STORAGE_PATH", "./data/documents")

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(name string, fallback int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidConfig, "config", fmt.Errorf("%s=%q is not an integer", name, value))
	}
	return parsed, nil
}

func getEnvFloat(name string, fallback float64) (float64, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidConfig, "config", fmt.Errorf("%s=%q is not a number", name, value))
	}
	return parsed, nil
}

func getEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidConfig, "config", fmt.Errorf("%s=%q is not a duration", name, value))
	}
	return parsed, nil
}
