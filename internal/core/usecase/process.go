package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

// Processor runs the ingestion pipeline for one document: extract text,
// chunk, embed, and atomically replace the document's entries in both
// indexes. Failures are recorded on the document and surfaced to the worker.
type Processor struct {
	log       *slog.Logger
	registry  ports.DocumentRegistry
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectors   ports.VectorIndex
	lexical   ports.LexicalIndex
}

func NewProcessor(
	log *slog.Logger,
	registry ports.DocumentRegistry,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	lexical ports.LexicalIndex,
) *Processor {
	return &Processor{
		log:       log,
		registry:  registry,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		lexical:   lexical,
	}
}

func (p *Processor) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := p.registry.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := p.registry.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	chunkCount, err := p.index(ctx, doc)
	if err != nil {
		if statusErr := p.registry.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); statusErr != nil {
			p.log.Error("mark document failed", "document_id", documentID, "error", statusErr)
		}
		return err
	}

	if err := p.registry.SetChunkCount(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("record chunk count: %w", err)
	}
	if err := p.registry.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}

	p.log.Info("document indexed", "document_id", documentID, "name", doc.Name, "chunks", chunkCount)
	return nil
}

func (p *Processor) index(ctx context.Context, doc *domain.Document) (int, error) {
	pages, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("document %s contains no extractable text", doc.Name)
	}

	chunks, err := p.chunker.Chunk(doc.Name, pages)
	if err != nil {
		return 0, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s produced no chunks", doc.Name)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	if err := p.vectors.ReplaceDocument(ctx, doc.Name, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index vectors: %w", err)
	}
	p.lexical.ReplaceDocument(doc.Name, chunks)
	return len(chunks), nil
}
