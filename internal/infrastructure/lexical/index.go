package lexical

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/acekavi/docqa/internal/core/domain"
)

// Index is an in-process TF-IDF scorer over chunk texts, used as the lexical
// leg of hybrid fusion. Readers work against an immutable snapshot swapped in
// atomically by writers, so a query never observes a half-replaced document.
type Index struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	entries  []entry
	docFreq  map[string]int
	docCount int
}

type entry struct {
	chunk    domain.Chunk
	termFreq map[string]float64
	length   float64
}

func New() *Index {
	idx := &Index{}
	idx.snap.Store(&snapshot{docFreq: map[string]int{}})
	return idx
}

// ReplaceDocument swaps the given document's chunk postings wholesale.
func (idx *Index) ReplaceDocument(docName string, chunks []domain.Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current := idx.snap.Load()
	entries := make([]entry, 0, len(current.entries)+len(chunks))
	for _, e := range current.entries {
		if e.chunk.DocName != docName {
			entries = append(entries, e)
		}
	}
	for _, chunk := range chunks {
		entries = append(entries, newEntry(chunk))
	}

	idx.snap.Store(buildSnapshot(entries))
}

func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snap.Store(&snapshot{docFreq: map[string]int{}})
}

func (idx *Index) Count() int {
	return len(idx.snap.Load().entries)
}

// Search scores every chunk against the query terms and returns the k best
// matches. Zero-score chunks are omitted. Ordering is deterministic: score
// descending, then chunk id, then doc name.
func (idx *Index) Search(query string, k int) []domain.LexicalHit {
	snap := idx.snap.Load()
	terms := tokenize(query)
	if len(snap.entries) == 0 || len(terms) == 0 {
		return nil
	}

	hits := make([]domain.LexicalHit, 0, k)
	for _, e := range snap.entries {
		score := snap.score(terms, e)
		if score <= 0 {
			continue
		}
		hits = append(hits, domain.LexicalHit{Chunk: e.chunk, Score: score})
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
	return hits
}

func (s *snapshot) score(queryTerms []string, e entry) float64 {
	if e.length == 0 {
		return 0
	}
	var sum float64
	for _, term := range queryTerms {
		tf, ok := e.termFreq[term]
		if !ok {
			continue
		}
		sum += tf * s.idf(term)
	}
	return sum / e.length
}

func (s *snapshot) idf(term string) float64 {
	df := s.docFreq[term]
	return math.Log(1.0 + float64(s.docCount)/float64(1+df))
}

func newEntry(chunk domain.Chunk) entry {
	tokens := tokenize(chunk.Text)
	termFreq := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		termFreq[token]++
	}
	return entry{
		chunk:    chunk,
		termFreq: termFreq,
		length:   math.Sqrt(float64(len(tokens))),
	}
}

func buildSnapshot(entries []entry) *snapshot {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].chunk.DocName != entries[j].chunk.DocName {
			return entries[i].chunk.DocName < entries[j].chunk.DocName
		}
		return entries[i].chunk.ChunkID < entries[j].chunk.ChunkID
	})

	docFreq := make(map[string]int, 256)
	for _, e := range entries {
		for term := range e.termFreq {
			docFreq[term]++
		}
	}
	return &snapshot{
		entries:  entries,
		docFreq:  docFreq,
		docCount: len(entries),
	}
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
