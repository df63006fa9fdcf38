package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/acekavi/docqa/internal/core/domain"
)

type fakeEmbedder struct {
	queryVector []float32
	queryErr    error
	embedFn     func(texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{1, 0}, nil
}

type fakeVectorIndex struct {
	hits     []domain.VectorHit
	count    int
	queryErr error

	replacedDoc    string
	replacedChunks []domain.Chunk
	replaceErr     error
}

func (f *fakeVectorIndex) ReplaceDocument(_ context.Context, docName string, chunks []domain.Chunk, _ [][]float32) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedDoc = docName
	f.replacedChunks = chunks
	return nil
}

func (f *fakeVectorIndex) Query(_ context.Context, _ []float32, k int) ([]domain.VectorHit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	hits := f.hits
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeVectorIndex) Count(context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeVectorIndex) Clear(context.Context) error {
	f.hits = nil
	f.count = 0
	return nil
}

type fakeLexicalIndex struct {
	hits []domain.LexicalHit

	replacedDoc    string
	replacedChunks []domain.Chunk
}

func (f *fakeLexicalIndex) ReplaceDocument(docName string, chunks []domain.Chunk) {
	f.replacedDoc = docName
	f.replacedChunks = chunks
}

func (f *fakeLexicalIndex) Search(_ string, k int) []domain.LexicalHit {
	hits := f.hits
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (f *fakeLexicalIndex) Count() int { return len(f.hits) }
func (f *fakeLexicalIndex) Clear()     { f.hits = nil }

type fakeCrossEncoder struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeCrossEncoder) ScoreBatch(_ context.Context, _ string, texts []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scores) != len(texts) {
		return nil, fmt.Errorf("fake has %d scores for %d texts", len(f.scores), len(texts))
	}
	return f.scores, nil
}

type fakeGenerator struct {
	answer     string
	answerErr  error
	calls      int
	candidates []domain.RetrievalCandidate

	jsonOutputs []string
	jsonCalls   int
	prompts     []string
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, _ string, candidates []domain.RetrievalCandidate) (string, error) {
	f.calls++
	f.candidates = candidates
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.jsonCalls >= len(f.jsonOutputs) {
		return "", errors.New("fake generator exhausted")
	}
	out := f.jsonOutputs[f.jsonCalls]
	f.jsonCalls++
	return out, nil
}

type fakeSchema struct {
	name       string
	validateFn func(data map[string]any) []string
}

func (f *fakeSchema) Name() string {
	if f.name == "" {
		return "test-schema"
	}
	return f.name
}

func (f *fakeSchema) Validate(data map[string]any) []string {
	if f.validateFn == nil {
		return nil
	}
	return f.validateFn(data)
}

func (f *fakeSchema) PromptDescription() string { return `{"type": "object"}` }

type fakeRegistry struct {
	docs      map[string]*domain.Document
	statuses  []domain.DocumentStatus
	createErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: map[string]*domain.Document{}}
}

func (f *fakeRegistry) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeRegistry) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeRegistry) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", fmt.Errorf("id %s", id))
	}
	doc.Status = status
	doc.Error = errMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRegistry) SetChunkCount(_ context.Context, id string, count int) error {
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "set chunk count", fmt.Errorf("id %s", id))
	}
	doc.ChunkCount = count
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeTextExtractor struct {
	pages []domain.Page
	err   error
}

func (f *fakeTextExtractor) Extract(context.Context, *domain.Document) ([]domain.Page, error) {
	return f.pages, f.err
}

type fakeChunker struct {
	chunks []domain.Chunk
	err    error
}

func (f *fakeChunker) Chunk(string, []domain.Page) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

func vectorHit(doc string, id int, score float64, vector []float32) domain.VectorHit {
	return domain.VectorHit{
		Chunk:  domain.Chunk{DocName: doc, ChunkID: id, Text: fmt.Sprintf("chunk %d of %s", id, doc)},
		Score:  score,
		Vector: vector,
	}
}

func lexicalHit(doc string, id int, score float64) domain.LexicalHit {
	return domain.LexicalHit{
		Chunk: domain.Chunk{DocName: doc, ChunkID: id, Text: fmt.Sprintf("chunk %d of %s", id, doc)},
		Score: score,
	}
}
