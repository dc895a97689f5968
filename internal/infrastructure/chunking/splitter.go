package chunking

import (
	"strings"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// Splitter cuts page text into overlapping rune windows. Windows never
// span page boundaries, so every chunk keeps a single page number.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(pages []domain.PageText) []domain.Chunk {
	var out []domain.Chunk
	for _, page := range pages {
		out = append(out, s.splitPage(page)...)
	}
	return out
}

func (s *Splitter) splitPage(page domain.PageText) []domain.Chunk {
	runes := []rune(page.Text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			out = append(out, domain.Chunk{Text: text, Page: page.Page})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
