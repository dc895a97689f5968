package pdfparse

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// Extractor reads staged PDF files page by page. Pages that yield no
// text (scanned images, fonts without a toUnicode map) are skipped.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Parse(ctx context.Context, path string) ([]domain.PageText, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer file.Close()

	total := reader.NumPage()
	pages := make([]domain.PageText, 0, total)
	for number := 1; number <= total; number++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(number)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", number, path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageText{Page: number, Text: text})
	}

	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf",
			fmt.Errorf("no extractable text in %s", path))
	}
	return pages, nil
}
