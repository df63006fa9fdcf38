package usecase

import (
	"context"
	"sort"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

// Cross-encoder raw scores are unbounded logits, typically in [-5, 5].
// They are mapped into [0, 1] so thresholds and citations use one scale.
const (
	rerankScoreShift = 5.0
	rerankScoreRange = 10.0
)

// RerankingOutcome carries the reranked candidate window together with the
// before/after comparison reported to clients.
type RerankingOutcome struct {
	Final []domain.RetrievalCandidate
	Stats domain.RerankingStats
}

// rerankCandidates rescores a first-stage candidate window with the
// cross-encoder and keeps the top finalK. The sort is stable: candidates the
// cross-encoder scores identically keep their first-stage relative order.
func rerankCandidates(
	ctx context.Context,
	scorer ports.CrossEncoder,
	question string,
	initial []domain.RetrievalCandidate,
	finalK int,
) (RerankingOutcome, error) {
	texts := make([]string, len(initial))
	for i, candidate := range initial {
		texts[i] = candidate.Chunk.Text
	}

	scores, err := scorer.ScoreBatch(ctx, question, texts)
	if err != nil {
		return RerankingOutcome{}, err
	}

	reranked := make([]domain.RetrievalCandidate, len(initial))
	for i, candidate := range initial {
		candidate.Score = normalizeRerankScore(scores[i])
		candidate.Stage = domain.StageReranked
		candidate.Relevance = candidate.Score
		reranked[i] = candidate
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	final := reranked
	if len(final) > finalK {
		final = final[:finalK]
	}

	originalTop3 := topChunkIDs(initial, 3)
	rerankedTop3 := topChunkIDs(reranked, 3)
	stats := domain.RerankingStats{
		InitialCandidates:     len(initial),
		FinalResults:          len(final),
		RerankingChangedOrder: !equalInts(originalTop3, rerankedTop3),
		OriginalTopScore:      initial[0].Score,
		RerankedTopScore:      reranked[0].Score,
		OriginalTop3Chunks:    originalTop3,
		RerankedTop3Chunks:    rerankedTop3,
	}
	return RerankingOutcome{Final: final, Stats: stats}, nil
}

func normalizeRerankScore(score float64) float64 {
	normalized := (score + rerankScoreShift) / rerankScoreRange
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

func topChunkIDs(candidates []domain.RetrievalCandidate, n int) []int {
	if n > len(candidates) {
		n = len(candidates)
	}
	ids := make([]int, 0, n)
	for _, candidate := range candidates[:n] {
		ids = append(ids, candidate.Chunk.ChunkID)
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
