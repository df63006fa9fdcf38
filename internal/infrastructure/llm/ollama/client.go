package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Embedder converts chunk and query text into fixed-dimension vectors.
// Ingest-time batches are issued concurrently up to a configured limit; a
// rate limiter keeps the embedding service from being flooded.
type Embedder struct {
	client      *Client
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

type EmbedderOptions struct {
	BatchSize      int
	Concurrency    int
	RequestsPerSec float64
}

func NewEmbedder(client *Client, options EmbedderOptions) *Embedder {
	batchSize := options.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if options.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSec), 1)
	}
	return &Embedder{
		client:      client,
		batchSize:   batchSize,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batch struct {
		start int
		texts []string
	}
	batches := make([]batch, 0, len(texts)/e.batchSize+1)
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start: start, texts: texts[start:end]})
	}

	vectors := make([][]float32, len(texts))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for _, b := range batches {
		if err := e.limiter.Wait(ctx); err != nil {
			errOnce.Do(func() { firstErr = err })
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(b batch) {
			defer wg.Done()
			defer func() { <-sem }()

			out, err := e.embedBatch(ctx, b.texts)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			copy(vectors[b.start:], out)
		}(b)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d/%d", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator produces grounded answers and raw JSON completions.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, candidates []domain.RetrievalCandidate) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, candidates))
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return g.client.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// call routes a request through the resilience executor when one is
// configured.
func (c *Client) call(ctx context.Context, path string, payload, out any, operation string) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, c.postJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, "ollama."+operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}
