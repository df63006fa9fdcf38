package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/acekavi/docqa/internal/core/domain"
)

// Registry is an in-memory document registry. Document metadata is
// reconstructible from storage plus reingestion, so it is deliberately not
// persisted anywhere relational.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]domain.Document)}
}

func (r *Registry) Create(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("missing document id"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *Registry) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	out := doc
	return &out, nil
}

func (r *Registry) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errors.New(id))
	}
	doc.Status = status
	doc.Error = errMessage
	doc.UpdatedAt = time.Now().UTC()
	r.docs[id] = doc
	return nil
}

func (r *Registry) SetChunkCount(_ context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "set chunk count", errors.New(id))
	}
	doc.ChunkCount = count
	doc.UpdatedAt = time.Now().UTC()
	r.docs[id] = doc
	return nil
}
