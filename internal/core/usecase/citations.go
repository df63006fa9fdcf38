package usecase

import (
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
)

const snippetMaxRunes = 150

// assembleSources derives the citation list for an answer from the exact
// candidates that formed the generation context, in context order.
func assembleSources(candidates []domain.RetrievalCandidate) []domain.Citation {
	sources := make([]domain.Citation, 0, len(candidates))
	for _, candidate := range candidates {
		sources = append(sources, domain.Citation{
			Doc:     candidate.Chunk.DocName,
			ChunkID: candidate.Chunk.ChunkID,
			Score:   candidate.Score,
			Snippet: makeSnippet(candidate.Chunk.Text, snippetMaxRunes),
		})
	}
	return sources
}

// guardSources drops any citation that does not reference one of the allowed
// candidates and returns the survivors in allowed-candidate order. Answers
// must never cite material outside the context they were generated from.
func guardSources(proposed []domain.Citation, allowed []domain.RetrievalCandidate) []domain.Citation {
	type ref struct {
		doc     string
		chunkID int
	}
	proposedSet := make(map[ref]domain.Citation, len(proposed))
	for _, citation := range proposed {
		key := ref{doc: citation.Doc, chunkID: citation.ChunkID}
		if _, ok := proposedSet[key]; !ok {
			proposedSet[key] = citation
		}
	}

	kept := make([]domain.Citation, 0, len(proposed))
	for _, candidate := range allowed {
		key := ref{doc: candidate.Chunk.DocName, chunkID: candidate.Chunk.ChunkID}
		if citation, ok := proposedSet[key]; ok {
			kept = append(kept, citation)
			delete(proposedSet, key)
		}
	}
	return kept
}

// makeSnippet truncates chunk text for display. The cut prefers the last
// word boundary when one falls in the final third of the window.
func makeSnippet(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	cut := string(runes[:maxRunes])
	if idx := strings.LastIndex(cut, " "); idx > int(float64(maxRunes)*0.7) {
		cut = cut[:idx]
	}
	return cut + "..."
}
