package chunking

import (
	"errors"
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
)

// pageSeparator joins extracted pages into one offset-addressable text.
const pageSeparator = "\n\n"

// Splitter cuts text into fixed-size overlapping windows. Offsets are rune
// offsets so citations can be mapped back to the extracted text exactly.
// Chunking is a pure function of (text, chunk size, overlap).
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", errors.New("chunk size must be positive"))
	}
	if overlap < 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", errors.New("overlap must not be negative"))
	}
	if overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", errors.New("overlap must be smaller than chunk size"))
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

// Chunk splits the document's pages into chunks with zero-based, strictly
// increasing chunk ids. Consecutive chunks share exactly the configured
// overlap, except possibly the final chunk. Page metadata is taken from the
// page containing the chunk's start offset.
func (s *Splitter) Chunk(docName string, pages []domain.Page) ([]domain.Chunk, error) {
	text, pageStarts := joinPages(pages)
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := s.chunkSize - s.overlap
	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Chunk{
			DocName:     docName,
			ChunkID:     len(out),
			Page:        pageNumberAt(pages, pageStarts, start),
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return out, nil
}

// joinPages concatenates page texts and records each page's rune start offset
// in the joined text.
func joinPages(pages []domain.Page) (string, []int) {
	var b strings.Builder
	starts := make([]int, 0, len(pages))
	offset := 0
	for i, page := range pages {
		if i > 0 {
			b.WriteString(pageSeparator)
			offset += len([]rune(pageSeparator))
		}
		starts = append(starts, offset)
		b.WriteString(page.Text)
		offset += len([]rune(page.Text))
	}
	return b.String(), starts
}

func pageNumberAt(pages []domain.Page, pageStarts []int, offset int) int {
	page := 0
	for i, start := range pageStarts {
		if start > offset {
			break
		}
		page = pages[i].Number
	}
	return page
}
