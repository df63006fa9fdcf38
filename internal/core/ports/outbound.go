package ports

import (
	"context"
	"io"

	"github.com/acekavi/docqa/internal/core/domain"
)

// DocumentRegistry tracks document ingestion state.
type DocumentRegistry interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts page-structured plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error)
}

// Chunker splits a document's pages into offset-tagged chunks.
// Deterministic: identical input always yields an identical chunk sequence.
type Chunker interface {
	Chunk(docName string, pages []domain.Page) ([]domain.Chunk, error)
}

// Embedder builds vectors for chunks and query text. Embed preserves input
// order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex owns persisted embeddings. ReplaceDocument atomically swaps a
// document's chunk set; concurrent queries see either the old or the new set,
// never a mix.
type VectorIndex interface {
	ReplaceDocument(ctx context.Context, docName string, chunks []domain.Chunk, vectors [][]float32) error
	Query(ctx context.Context, queryVector []float32, k int) ([]domain.VectorHit, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// LexicalIndex is the in-process inverted-index scorer used for hybrid fusion.
type LexicalIndex interface {
	ReplaceDocument(docName string, chunks []domain.Chunk)
	Search(query string, k int) []domain.LexicalHit
	Count() int
	Clear()
}

// CrossEncoder scores (query, text) pairs jointly for second-stage reranking.
// Scores are returned in input order.
type CrossEncoder interface {
	ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error)
}

// AnswerGenerator creates the final user-facing answer from the supplied
// context chunks, and raw JSON completions for structured extraction.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, candidates []domain.RetrievalCandidate) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// ExtractionSchema validates structured model output against a target schema.
type ExtractionSchema interface {
	Name() string
	// Validate returns one message per violation; empty means the value
	// conforms.
	Validate(data map[string]any) []string
	// PromptDescription renders the schema for embedding into prompts.
	PromptDescription() string
}
