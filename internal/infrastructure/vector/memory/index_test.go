package memory

import (
	"context"
	"testing"

	"github.com/acekavi/docqa/internal/core/domain"
)

func chunk(doc string, id int) domain.Chunk {
	return domain.Chunk{DocName: doc, ChunkID: id, Text: "text"}
}

func TestQueryOrdersByCosineSimilarity(t *testing.T) {
	idx := New()
	err := idx.ReplaceDocument(context.Background(), "doc.txt",
		[]domain.Chunk{chunk("doc.txt", 0), chunk("doc.txt", 1), chunk("doc.txt", 2)},
		[][]float32{
			{0, 1},        // orthogonal
			{1, 0},        // identical direction
			{0.7, 0.7},    // diagonal
		})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits", len(hits))
	}
	wantOrder := []int{1, 2, 0}
	for i, want := range wantOrder {
		if hits[i].Chunk.ChunkID != want {
			t.Errorf("position %d: chunk %d, want %d", i, hits[i].Chunk.ChunkID, want)
		}
	}
	if hits[0].Score < 0.999 {
		t.Errorf("identical direction scored %v", hits[0].Score)
	}
	if len(hits[0].Vector) == 0 {
		t.Errorf("hit is missing its stored vector")
	}
}

func TestQueryTieBreakByChunkIDThenDoc(t *testing.T) {
	idx := New()
	vec := [][]float32{{1, 0}}
	for _, doc := range []string{"b.txt", "a.txt"} {
		if err := idx.ReplaceDocument(context.Background(), doc, []domain.Chunk{chunk(doc, 0)}, vec); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Chunk.DocName != "a.txt" || hits[1].Chunk.DocName != "b.txt" {
		t.Fatalf("tie order %s, %s", hits[0].Chunk.DocName, hits[1].Chunk.DocName)
	}
}

func TestQueryRejectsEmptyVector(t *testing.T) {
	idx := New()
	_, err := idx.Query(context.Background(), nil, 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReplaceDocumentRejectsLengthMismatch(t *testing.T) {
	idx := New()
	err := idx.ReplaceDocument(context.Background(), "doc.txt",
		[]domain.Chunk{chunk("doc.txt", 0)}, nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReplaceDocumentSwapsWholesale(t *testing.T) {
	ctx := context.Background()
	idx := New()
	if err := idx.ReplaceDocument(ctx, "doc.txt",
		[]domain.Chunk{chunk("doc.txt", 0), chunk("doc.txt", 1)},
		[][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.ReplaceDocument(ctx, "doc.txt",
		[]domain.Chunk{chunk("doc.txt", 0)},
		[][]float32{{1, 1}}); err != nil {
		t.Fatal(err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count %d, want 1", count)
	}
}

func TestQueryEmptyIndexReturnsNoHits(t *testing.T) {
	idx := New()
	hits, err := idx.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits from empty index", len(hits))
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	idx := New()
	if err := idx.ReplaceDocument(ctx, "doc.txt",
		[]domain.Chunk{chunk("doc.txt", 0)}, [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count %d after clear", count)
	}
}
