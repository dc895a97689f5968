package ports

import (
	"context"
	"io"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// Assistant is the inbound contract for question answering. It never
// returns an error: every failure is folded into the Answer payload.
type Assistant interface {
	Answer(ctx context.Context, question string, role domain.Role) domain.Answer
}

// DocumentIngestor is the inbound contract for knowledge-base uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename string, role domain.Role, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for upload state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
