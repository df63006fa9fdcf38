package extractor

import (
	"testing"

	"github.com/acekavi/docqa/internal/core/domain"
)

func TestDetectFormatByMimeType(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{mime: "application/pdf", want: "pdf"},
		{mime: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", want: "xlsx"},
		{mime: "text/plain", want: "text"},
	}
	for _, tc := range cases {
		doc := &domain.Document{Name: "file.bin", MimeType: tc.mime}
		if got := detectFormat(doc); got != tc.want {
			t.Errorf("mime %s: format %s, want %s", tc.mime, got, tc.want)
		}
	}
}

func TestDetectFormatByExtension(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "report.PDF", want: "pdf"},
		{name: "sheet.xlsx", want: "xlsx"},
		{name: "macro.xlsm", want: "xlsx"},
		{name: "notes.txt", want: "text"},
		{name: "README", want: "text"},
	}
	for _, tc := range cases {
		// Octet-stream mime forces extension-based detection.
		doc := &domain.Document{Name: tc.name, MimeType: "application/octet-stream"}
		if got := detectFormat(doc); got != tc.want {
			t.Errorf("name %s: format %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestMimeTypeWinsOverExtension(t *testing.T) {
	doc := &domain.Document{Name: "mislabeled.txt", MimeType: "application/pdf"}
	if got := detectFormat(doc); got != "pdf" {
		t.Fatalf("format %s", got)
	}
}
