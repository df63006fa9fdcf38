package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/acekavi/docqa/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestQueryService(t *testing.T, vectors *fakeVectorIndex, lexical *fakeLexicalIndex, scorer *fakeCrossEncoder, generator *fakeGenerator, cfg QueryConfig) *QueryService {
	t.Helper()
	retriever, err := NewRetriever(&fakeEmbedder{}, vectors, lexical, RetrieverConfig{Mode: ModeVector})
	if err != nil {
		t.Fatal(err)
	}
	return NewQueryService(discardLogger(), retriever, scorer, generator, vectors, cfg)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	service := newTestQueryService(t, &fakeVectorIndex{count: 1}, &fakeLexicalIndex{}, &fakeCrossEncoder{}, &fakeGenerator{}, QueryConfig{})

	_, err := service.Ask(context.Background(), "   ", 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAskFallsBackOnEmptyIndex(t *testing.T) {
	generator := &fakeGenerator{answer: "should not be used"}
	service := newTestQueryService(t, &fakeVectorIndex{count: 0}, &fakeLexicalIndex{}, &fakeCrossEncoder{}, generator, QueryConfig{
		FallbackAnswer: "I don't know based on the available documents.",
	})

	answer, err := service.Ask(context.Background(), "what is this", 5)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "I don't know based on the available documents." {
		t.Errorf("answer %q", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("fallback carried %d sources", len(answer.Sources))
	}
	if generator.calls != 0 {
		t.Errorf("generator invoked %d times with empty context", generator.calls)
	}
}

func TestAskFallsBackBelowThreshold(t *testing.T) {
	vectors := &fakeVectorIndex{
		count: 1,
		hits:  []domain.VectorHit{vectorHit("doc.txt", 0, 0.2, nil)},
	}
	generator := &fakeGenerator{answer: "should not be used"}
	service := newTestQueryService(t, vectors, &fakeLexicalIndex{}, &fakeCrossEncoder{}, generator, QueryConfig{
		MinScore: 0.5,
	})

	answer, err := service.Ask(context.Background(), "question", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("got %d sources", len(answer.Sources))
	}
	if generator.calls != 0 {
		t.Errorf("generator invoked below threshold")
	}
}

func TestAskThresholdJudgesDiversityPicksOnSimilarity(t *testing.T) {
	// Both chunks are highly similar to the query, so the redundancy penalty
	// drives the second pick's selection objective negative. The threshold
	// must judge the similarity behind the pick, not the objective.
	vectors := &fakeVectorIndex{
		count: 2,
		hits: []domain.VectorHit{
			vectorHit("doc.txt", 0, 0.95, []float32{1, 0}),
			vectorHit("doc.txt", 1, 0.90, []float32{0.99, 0.14}),
		},
	}
	retriever, err := NewRetriever(&fakeEmbedder{}, vectors, &fakeLexicalIndex{}, RetrieverConfig{
		Mode:      ModeMMR,
		MMRLambda: 0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	generator := &fakeGenerator{answer: "grounded answer"}
	service := NewQueryService(discardLogger(), retriever, &fakeCrossEncoder{}, generator, vectors, QueryConfig{
		MinScore: 0.5,
	})

	answer, err := service.Ask(context.Background(), "question", 2)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "grounded answer" {
		t.Errorf("answer %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("got %d sources, want both diversity picks kept", len(answer.Sources))
	}
}

func TestAskReturnsAnswerWithSources(t *testing.T) {
	vectors := &fakeVectorIndex{
		count: 2,
		hits: []domain.VectorHit{
			vectorHit("doc.txt", 0, 0.9, nil),
			vectorHit("doc.txt", 1, 0.8, nil),
		},
	}
	generator := &fakeGenerator{answer: "grounded answer"}
	service := newTestQueryService(t, vectors, &fakeLexicalIndex{}, &fakeCrossEncoder{}, generator, QueryConfig{})

	answer, err := service.Ask(context.Background(), "question", 2)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "grounded answer" {
		t.Errorf("answer %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("got %d sources", len(answer.Sources))
	}
	if answer.Sources[0].Doc != "doc.txt" || answer.Sources[0].ChunkID != 0 {
		t.Errorf("first source %+v", answer.Sources[0])
	}
	if generator.calls != 1 || len(generator.candidates) != 2 {
		t.Errorf("generator saw %d calls with %d candidates", generator.calls, len(generator.candidates))
	}
}

func TestAskUsesDefaultTopK(t *testing.T) {
	hits := make([]domain.VectorHit, 10)
	for i := range hits {
		hits[i] = vectorHit("doc.txt", i, 1.0-float64(i)*0.05, nil)
	}
	vectors := &fakeVectorIndex{count: 10, hits: hits}
	generator := &fakeGenerator{answer: "ok"}
	service := newTestQueryService(t, vectors, &fakeLexicalIndex{}, &fakeCrossEncoder{}, generator, QueryConfig{
		DefaultTopK: 3,
	})

	answer, err := service.Ask(context.Background(), "question", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Sources) != 3 {
		t.Fatalf("got %d sources, want the default 3", len(answer.Sources))
	}
}

func TestAskRerankedRejectsInvalidWindow(t *testing.T) {
	service := newTestQueryService(t, &fakeVectorIndex{count: 1}, &fakeLexicalIndex{}, &fakeCrossEncoder{}, &fakeGenerator{}, QueryConfig{})

	_, err := service.AskReranked(context.Background(), "question", 3, 10)
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestAskRerankedReordersAndReportsStats(t *testing.T) {
	vectors := &fakeVectorIndex{
		count: 3,
		hits: []domain.VectorHit{
			vectorHit("doc.txt", 0, 0.9, nil),
			vectorHit("doc.txt", 1, 0.8, nil),
			vectorHit("doc.txt", 2, 0.7, nil),
		},
	}
	scorer := &fakeCrossEncoder{scores: []float64{3, 7, 1}}
	generator := &fakeGenerator{answer: "reranked answer"}
	service := newTestQueryService(t, vectors, &fakeLexicalIndex{}, scorer, generator, QueryConfig{})

	answer, err := service.AskReranked(context.Background(), "question", 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "reranked answer" {
		t.Errorf("answer %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("got %d sources", len(answer.Sources))
	}
	if answer.Sources[0].ChunkID != 1 || answer.Sources[1].ChunkID != 0 {
		t.Errorf("source order %d, %d", answer.Sources[0].ChunkID, answer.Sources[1].ChunkID)
	}
	if answer.Stats.InitialCandidates != 3 || answer.Stats.FinalResults != 2 {
		t.Errorf("stats %+v", answer.Stats)
	}
	if !answer.Stats.RerankingChangedOrder {
		t.Error("order change not reported")
	}
	if scorer.calls != 1 {
		t.Errorf("cross-encoder called %d times", scorer.calls)
	}
}

func TestAskRerankedFallsBackOnEmptyIndex(t *testing.T) {
	generator := &fakeGenerator{answer: "should not be used"}
	service := newTestQueryService(t, &fakeVectorIndex{count: 0}, &fakeLexicalIndex{}, &fakeCrossEncoder{}, generator, QueryConfig{
		FallbackAnswer: "I don't know based on the available documents.",
	})

	answer, err := service.AskReranked(context.Background(), "question", 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("fallback carried %d sources", len(answer.Sources))
	}
	if answer.Stats.InitialCandidates != 0 || answer.Stats.FinalResults != 0 {
		t.Errorf("stats %+v", answer.Stats)
	}
	if generator.calls != 0 {
		t.Errorf("generator invoked with empty context")
	}
}

func TestStatsReportsCollectionAndCount(t *testing.T) {
	service := newTestQueryService(t, &fakeVectorIndex{count: 42}, &fakeLexicalIndex{}, &fakeCrossEncoder{}, &fakeGenerator{}, QueryConfig{
		Collection: "documents",
	})

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Collection != "documents" || stats.ChunkCount != 42 {
		t.Fatalf("stats %+v", stats)
	}
}
