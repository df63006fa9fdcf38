package plaintext

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/acekavi/docqa/internal/core/domain"
)

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func TestExtractReturnsSinglePage(t *testing.T) {
	storage := &fakeStorage{objects: map[string][]byte{
		"doc-1/notes.txt": []byte("  some text content\n"),
	}}
	extractor := NewExtractor(storage)

	pages, err := extractor.Extract(context.Background(), &domain.Document{
		Name:        "notes.txt",
		StoragePath: "doc-1/notes.txt",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages", len(pages))
	}
	if pages[0].Number != 0 {
		t.Errorf("page number %d, want 0 for unpaged text", pages[0].Number)
	}
	if pages[0].Text != "some text content" {
		t.Errorf("text %q", pages[0].Text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	storage := &fakeStorage{objects: map[string][]byte{
		"doc-1/blob": {0xff, 0xfe, 0x00, 0x80},
	}}
	extractor := NewExtractor(storage)

	_, err := extractor.Extract(context.Background(), &domain.Document{
		Name:        "blob",
		StoragePath: "doc-1/blob",
	})
	if err == nil {
		t.Fatal("expected error for non-utf8 input")
	}
}

func TestExtractEmptyFile(t *testing.T) {
	storage := &fakeStorage{objects: map[string][]byte{
		"doc-1/empty.txt": []byte("   \n  "),
	}}
	extractor := NewExtractor(storage)

	pages, err := extractor.Extract(context.Background(), &domain.Document{
		Name:        "empty.txt",
		StoragePath: "doc-1/empty.txt",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 {
		t.Fatalf("got %d pages for blank file", len(pages))
	}
}
