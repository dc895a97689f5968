package ports

import (
	"context"
	"io"
	"time"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// DocumentRegistry persists and reads upload state.
type DocumentRegistry interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stages uploaded files locally. Save returns the path the
// file was written to, keyed by original filename (last write wins).
type ObjectStorage interface {
	Save(ctx context.Context, filename string, data io.Reader) (string, error)
}

// DocumentParser turns a staged file into page-tagged text.
type DocumentParser interface {
	Parse(ctx context.Context, path string) ([]domain.PageText, error)
}

// Chunker splits page-tagged text into overlapping chunks.
type Chunker interface {
	Split(pages []domain.PageText) []domain.Chunk
}

// Embedder builds vectors for chunk batches and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the external vector database boundary.
type VectorIndex interface {
	EnsureReady(ctx context.Context) error
	Upsert(ctx context.Context, records []domain.IndexRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalMatch, error)
}

// AnswerGenerator creates the final user-facing answer. The user variant
// binds the plain template, the admin variant the context-aware one.
type AnswerGenerator interface {
	GenerateUserAnswer(ctx context.Context, question string) (string, error)
	GenerateAdminAnswer(ctx context.Context, question, contextText string) (string, error)
}

// ResponseCache memoizes answers for the life of the process.
type ResponseCache interface {
	Get(key string) (domain.Answer, bool)
	Put(key string, answer domain.Answer)
}

// TaskRunner executes a blocking external call on a bounded worker pool.
// A timeout stops the wait, not the underlying call, and surfaces as
// domain.ErrTimeout.
type TaskRunner interface {
	Run(ctx context.Context, timeout time.Duration, operation string, fn func(context.Context) error) error
}

// EventPublisher emits platform events after successful ingestion.
type EventPublisher interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
}
