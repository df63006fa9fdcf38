package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/acekavi/docqa/internal/core/domain"
)

// Index is an in-memory cosine-similarity vector index. Each write builds a
// new immutable generation and swaps the active pointer, so in-flight queries
// always see one fully consistent chunk set (never a half-replaced document).
type Index struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	entries []entry
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

func New() *Index {
	idx := &Index{}
	idx.snap.Store(&snapshot{})
	return idx
}

// ReplaceDocument swaps the document's chunks and vectors wholesale.
func (idx *Index) ReplaceDocument(_ context.Context, docName string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "replace document", errors.New("chunks/vectors length mismatch"))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	current := idx.snap.Load()
	entries := make([]entry, 0, len(current.entries)+len(chunks))
	for _, e := range current.entries {
		if e.chunk.DocName != docName {
			entries = append(entries, e)
		}
	}
	for i, chunk := range chunks {
		entries = append(entries, entry{
			chunk:  chunk,
			vector: vectors[i],
			norm:   vectorNorm(vectors[i]),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].chunk.DocName != entries[j].chunk.DocName {
			return entries[i].chunk.DocName < entries[j].chunk.DocName
		}
		return entries[i].chunk.ChunkID < entries[j].chunk.ChunkID
	})

	idx.snap.Store(&snapshot{entries: entries})
	return nil
}

func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snap.Store(&snapshot{})
	return nil
}

func (idx *Index) Count(_ context.Context) (int, error) {
	return len(idx.snap.Load().entries), nil
}

// Query returns the k nearest chunks by cosine similarity, ordered by score
// descending with deterministic tie-breaks (chunk id, then doc name). Stored
// vectors are included in the hits for downstream diversity selection.
func (idx *Index) Query(_ context.Context, queryVector []float32, k int) ([]domain.VectorHit, error) {
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "vector query", errors.New("empty query vector"))
	}
	snap := idx.snap.Load()
	if len(snap.entries) == 0 {
		return nil, nil
	}

	queryNorm := vectorNorm(queryVector)
	hits := make([]domain.VectorHit, 0, len(snap.entries))
	for _, e := range snap.entries {
		hits = append(hits, domain.VectorHit{
			Chunk:  e.chunk,
			Score:  cosine(queryVector, queryNorm, e.vector, e.norm),
			Vector: e.vector,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.ChunkID != hits[j].Chunk.ChunkID {
			return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
		}
		return hits[i].Chunk.DocName < hits[j].Chunk.DocName
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
