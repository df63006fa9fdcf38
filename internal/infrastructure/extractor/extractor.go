package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
	"github.com/acekavi/docqa/internal/infrastructure/extractor/excel"
	"github.com/acekavi/docqa/internal/infrastructure/extractor/pdf"
	"github.com/acekavi/docqa/internal/infrastructure/extractor/plaintext"
)

// Dispatcher routes a stored document to the extractor for its format.
// Unknown formats fall back to plain text, which rejects binary input.
type Dispatcher struct {
	plaintext ports.TextExtractor
	pdf       ports.TextExtractor
	excel     ports.TextExtractor
}

func NewDispatcher(storage ports.ObjectStorage) *Dispatcher {
	return &Dispatcher{
		plaintext: plaintext.NewExtractor(storage),
		pdf:       pdf.NewExtractor(storage),
		excel:     excel.NewExtractor(storage),
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	switch detectFormat(doc) {
	case "pdf":
		return d.pdf.Extract(ctx, doc)
	case "xlsx":
		return d.excel.Extract(ctx, doc)
	default:
		return d.plaintext.Extract(ctx, doc)
	}
}

func detectFormat(doc *domain.Document) string {
	switch strings.ToLower(doc.MimeType) {
	case "application/pdf":
		return "pdf"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	}

	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return "pdf"
	case ".xlsx", ".xlsm":
		return "xlsx"
	default:
		return "text"
	}
}
