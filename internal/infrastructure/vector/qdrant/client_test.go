package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acekavi/docqa/internal/core/domain"
)

func TestReplaceDocumentDeletesThenUpserts(t *testing.T) {
	var calls []string
	var deleteBody, upsertBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/delete":
			_ = json.NewDecoder(r.Body).Decode(&deleteBody)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			_ = json.NewDecoder(r.Body).Decode(&upsertBody)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	err := client.ReplaceDocument(context.Background(), "report.pdf",
		[]domain.Chunk{{DocName: "report.pdf", ChunkID: 0, Text: "text", StartOffset: 0, EndOffset: 4}},
		[][]float32{{0.1, 0.2}})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"POST /collections/docs/points/delete",
		"PUT /collections/docs",
		"PUT /collections/docs/points",
	}
	if len(calls) != len(want) {
		t.Fatalf("calls %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls %v, want %v", calls, want)
		}
	}

	filter := deleteBody["filter"].(map[string]any)
	must := filter["must"].([]any)[0].(map[string]any)
	if must["key"] != "doc_name" {
		t.Errorf("delete filter %v", deleteBody)
	}

	points := upsertBody["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points %v", points)
	}
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	for _, field := range []string{"doc_name", "chunk_id", "page", "text", "start_offset", "end_offset"} {
		if _, ok := payload[field]; !ok {
			t.Errorf("payload missing %q: %v", field, payload)
		}
	}
}

func TestQueryMapsPayloadToChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["with_payload"] != true || req["with_vector"] != true {
			t.Errorf("request %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score":  0.87,
					"vector": []float32{0.1, 0.2},
					"payload": map[string]any{
						"doc_name":     "report.pdf",
						"chunk_id":     3,
						"page":         2,
						"text":         "chunk text",
						"start_offset": 100,
						"end_offset":   200,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	hits, err := client.Query(context.Background(), []float32{0.5, 0.5}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	hit := hits[0]
	if hit.Score != 0.87 || len(hit.Vector) != 2 {
		t.Errorf("hit %+v", hit)
	}
	want := domain.Chunk{
		DocName: "report.pdf", ChunkID: 3, Page: 2,
		Text: "chunk text", StartOffset: 100, EndOffset: 200,
	}
	if hit.Chunk != want {
		t.Errorf("chunk %+v, want %+v", hit.Chunk, want)
	}
}

func TestCountMissingCollectionIsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	count, err := client.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count %d", count)
	}
}

func TestCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"count": 17},
		})
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	count, err := client.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 17 {
		t.Fatalf("count %d", count)
	}
}

func TestReplaceDocumentLengthMismatch(t *testing.T) {
	client := New("http://unused", "docs")
	err := client.ReplaceDocument(context.Background(), "doc",
		[]domain.Chunk{{DocName: "doc", ChunkID: 0}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClearToleratesMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	if err := client.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
}
