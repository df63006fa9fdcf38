package ports

import (
	"context"
	"io"

	"github.com/acekavi/docqa/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing (extract, chunk, embed, index).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// QuestionService answers questions grounded in the indexed corpus.
type QuestionService interface {
	Ask(ctx context.Context, question string, topK int) (*domain.Answer, error)
	AskReranked(ctx context.Context, question string, initialK, finalK int) (*domain.RerankedAnswer, error)
	Stats(ctx context.Context) (domain.IndexStats, error)
}

// ExtractionService runs the schema-validated structured-extraction loop.
type ExtractionService interface {
	Extract(ctx context.Context, text string) (domain.ExtractionResult, error)
}
