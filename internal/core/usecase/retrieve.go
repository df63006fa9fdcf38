package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

type RetrievalMode string

const (
	ModeVector RetrievalMode = "vector"
	ModeHybrid RetrievalMode = "hybrid"
	ModeMMR    RetrievalMode = "mmr"
)

type RetrieverConfig struct {
	Mode RetrievalMode

	// HybridAlpha weights the vector leg of hybrid fusion; the lexical leg
	// gets 1-alpha. Must be in [0, 1].
	HybridAlpha float64
	// HybridCandidates is how many hits each leg contributes before fusion.
	HybridCandidates int

	// MMRLambda trades relevance against diversity. Must be in [0, 1].
	MMRLambda float64
	// MMRPoolK is the size of the vector pool diversity selection draws from.
	MMRPoolK int
}

// Retriever turns a question into a scored, deterministically ordered list
// of candidate chunks using the configured strategy.
type Retriever struct {
	embedder ports.Embedder
	vectors  ports.VectorIndex
	lexical  ports.LexicalIndex
	cfg      RetrieverConfig
}

func NewRetriever(embedder ports.Embedder, vectors ports.VectorIndex, lexical ports.LexicalIndex, cfg RetrieverConfig) (*Retriever, error) {
	switch cfg.Mode {
	case "", ModeVector:
		cfg.Mode = ModeVector
	case ModeHybrid, ModeMMR:
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "retriever", fmt.Errorf("unknown retrieval mode %q", cfg.Mode))
	}
	if cfg.HybridAlpha < 0 || cfg.HybridAlpha > 1 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "retriever", fmt.Errorf("hybrid alpha %v outside [0, 1]", cfg.HybridAlpha))
	}
	if cfg.MMRLambda < 0 || cfg.MMRLambda > 1 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "retriever", fmt.Errorf("mmr lambda %v outside [0, 1]", cfg.MMRLambda))
	}
	if cfg.HybridCandidates <= 0 {
		cfg.HybridCandidates = 50
	}
	if cfg.MMRPoolK <= 0 {
		cfg.MMRPoolK = 20
	}
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexical,
		cfg:      cfg,
	}, nil
}

// Retrieve runs the configured strategy. An index without any chunks yields
// ErrEmptyIndex so callers can answer with their fallback.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievalCandidate, error) {
	switch r.cfg.Mode {
	case ModeHybrid:
		return r.retrieveHybrid(ctx, question, k)
	case ModeMMR:
		return r.retrieveMMR(ctx, question, k)
	default:
		return r.RetrieveVector(ctx, question, k)
	}
}

// RetrieveVector is plain nearest-neighbor retrieval. It is also the first
// stage of cross-encoder reranking, which refines similarity hits and must
// not depend on the configured strategy.
func (r *Retriever) RetrieveVector(ctx context.Context, question string, k int) ([]domain.RetrievalCandidate, error) {
	queryVector, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := r.vectors.Query(ctx, queryVector, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.RetrievalCandidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, domain.RetrievalCandidate{
			Chunk:     hit.Chunk,
			Score:     hit.Score,
			Stage:     domain.StageVector,
			Relevance: hit.Score,
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

func (r *Retriever) retrieveHybrid(ctx context.Context, question string, k int) ([]domain.RetrievalCandidate, error) {
	pool := r.cfg.HybridCandidates
	if pool < k {
		pool = k
	}

	queryVector, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	vectorHits, err := r.vectors.Query(ctx, queryVector, pool)
	if err != nil {
		return nil, err
	}
	lexicalHits := r.lexical.Search(question, pool)

	type fusionEntry struct {
		chunk   domain.Chunk
		vector  float64
		hasVec  bool
		lexical float64
		hasLex  bool
	}
	union := make(map[string]*fusionEntry, len(vectorHits)+len(lexicalHits))
	key := func(c domain.Chunk) string {
		return fmt.Sprintf("%s\x00%d", c.DocName, c.ChunkID)
	}
	for _, hit := range vectorHits {
		union[key(hit.Chunk)] = &fusionEntry{chunk: hit.Chunk, vector: hit.Score, hasVec: true}
	}
	for _, hit := range lexicalHits {
		entry, ok := union[key(hit.Chunk)]
		if !ok {
			entry = &fusionEntry{chunk: hit.Chunk}
			union[key(hit.Chunk)] = entry
		}
		entry.lexical = hit.Score
		entry.hasLex = true
	}

	// Each leg is min-max normalized over its own hits for this query, so
	// the two score distributions become comparable before weighting. A
	// candidate missing a leg keeps 0 on it, below the normalized floor, so
	// at alpha extremes the dominant leg's ranking survives intact.
	vecNorm := newMinMax()
	lexNorm := newMinMax()
	for _, entry := range union {
		if entry.hasVec {
			vecNorm.observe(entry.vector)
		}
		if entry.hasLex {
			lexNorm.observe(entry.lexical)
		}
	}

	alpha := r.cfg.HybridAlpha
	candidates := make([]domain.RetrievalCandidate, 0, len(union))
	for _, entry := range union {
		var vec, lex float64
		if entry.hasVec {
			vec = vecNorm.normalize(entry.vector)
		}
		if entry.hasLex {
			lex = lexNorm.normalize(entry.lexical)
		}
		fused := alpha*vec + (1-alpha)*lex
		candidates = append(candidates, domain.RetrievalCandidate{
			Chunk:     entry.chunk,
			Score:     fused,
			Stage:     domain.StageHybrid,
			Relevance: fused,
		})
	}
	sortCandidates(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (r *Retriever) retrieveMMR(ctx context.Context, question string, k int) ([]domain.RetrievalCandidate, error) {
	pool := r.cfg.MMRPoolK
	if pool < k {
		pool = k
	}

	queryVector, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	hits, err := r.vectors.Query(ctx, queryVector, pool)
	if err != nil {
		return nil, err
	}

	lambda := r.cfg.MMRLambda
	selected := make([]domain.RetrievalCandidate, 0, k)
	selectedVectors := make([][]float32, 0, k)
	remaining := append([]domain.VectorHit(nil), hits...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, hit := range remaining {
			redundancy := 0.0
			for _, vec := range selectedVectors {
				if sim := cosine32(hit.Vector, vec); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*hit.Score - (1-lambda)*redundancy
			if bestIdx == -1 || score > bestScore ||
				(score == bestScore && chunkLess(hit.Chunk, remaining[bestIdx].Chunk)) {
				bestIdx = i
				bestScore = score
			}
		}

		hit := remaining[bestIdx]
		selected = append(selected, domain.RetrievalCandidate{
			Chunk:     hit.Chunk,
			Score:     bestScore,
			Stage:     domain.StageMMR,
			Relevance: hit.Score,
		})
		selectedVectors = append(selectedVectors, hit.Vector)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected, nil
}

func (r *Retriever) embedQuery(ctx context.Context, question string) ([]float32, error) {
	count, err := r.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.WrapError(domain.ErrEmptyIndex, "retrieve", fmt.Errorf("no documents indexed"))
	}
	return r.embedder.EmbedQuery(ctx, question)
}

// sortCandidates orders by score descending, then chunk id, then document
// name, so identical inputs always produce identical result lists.
func sortCandidates(candidates []domain.RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return chunkLess(candidates[i].Chunk, candidates[j].Chunk)
	})
}

func chunkLess(a, b domain.Chunk) bool {
	if a.ChunkID != b.ChunkID {
		return a.ChunkID < b.ChunkID
	}
	return a.DocName < b.DocName
}

type minMax struct {
	min, max float64
	seen     bool
}

func newMinMax() *minMax {
	return &minMax{}
}

func (m *minMax) observe(v float64) {
	if !m.seen {
		m.min, m.max = v, v
		m.seen = true
		return
	}
	if v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
}

// fusionLegFloor keeps a leg's weakest observed hit strictly above the zero
// assigned to candidates the leg never returned at all.
const fusionLegFloor = 1e-6

// normalize maps v into [fusionLegFloor, 1]. A degenerate leg where every hit
// carries the same score normalizes to 1, keeping its hits visible after
// fusion.
func (m *minMax) normalize(v float64) float64 {
	if !m.seen {
		return 0
	}
	if m.max == m.min {
		return 1
	}
	return fusionLegFloor + (1-fusionLegFloor)*(v-m.min)/(m.max-m.min)
}

func cosine32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
