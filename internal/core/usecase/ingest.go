package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

// Ingestor accepts an uploaded document, persists its bytes, registers it,
// and queues it for asynchronous processing.
type Ingestor struct {
	log      *slog.Logger
	registry ports.DocumentRegistry
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
}

func NewIngestor(log *slog.Logger, registry ports.DocumentRegistry, storage ports.ObjectStorage, queue ports.MessageQueue) *Ingestor {
	return &Ingestor{
		log:      log,
		registry: registry,
		storage:  storage,
		queue:    queue,
	}
}

func (i *Ingestor) Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          id,
		Name:        name,
		MimeType:    mimeType,
		StoragePath: path.Join(id, name),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := i.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("store document %s: %w", name, err)
	}
	if err := i.registry.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document %s: %w", name, err)
	}

	if err := i.queue.PublishDocumentIngested(ctx, id); err != nil {
		if statusErr := i.registry.UpdateStatus(ctx, id, domain.StatusFailed, "enqueue for processing failed"); statusErr != nil {
			i.log.Error("mark document failed", "document_id", id, "error", statusErr)
		}
		return nil, fmt.Errorf("enqueue document %s: %w", id, err)
	}

	i.log.Info("document accepted", "document_id", id, "name", name, "mime_type", mimeType)
	return doc, nil
}

func sanitizeFilename(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unusable filename %q", filename))
	}
	return name, nil
}
