package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/healthflow/ai-assistant/internal/core/domain"
	"github.com/healthflow/ai-assistant/internal/core/ports"
)

// IngestDocumentUseCase runs the ingestion pipeline per uploaded file:
// stage, parse, chunk, embed, upsert. A failure at any step aborts the
// file and surfaces to the caller; the staged file is not rolled back.
type IngestDocumentUseCase struct {
	registry ports.DocumentRegistry
	storage  ports.ObjectStorage
	parser   ports.DocumentParser
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	events   ports.EventPublisher
	logger   *slog.Logger
}

func NewIngestDocumentUseCase(
	registry ports.DocumentRegistry,
	storage ports.ObjectStorage,
	parser ports.DocumentParser,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	events ports.EventPublisher,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		registry: registry,
		storage:  storage,
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		events:   events,
		logger:   logger,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename string,
	role domain.Role,
	body io.Reader,
) (*domain.Document, error) {
	if !role.IsAdmin() {
		return nil, domain.WrapError(domain.ErrForbidden, "upload document", errors.New("only admin can upload documents"))
	}
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}

	path, err := uc.storage.Save(ctx, filename, body)
	if err != nil {
		return nil, fmt.Errorf("stage uploaded file: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		Role:        role,
		StoragePath: path,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.registry.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	chunkCount, err := uc.process(ctx, doc)
	if err != nil {
		if failErr := uc.registry.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); failErr != nil {
			uc.logger.Error("mark_document_failed", "doc_id", doc.ID, "error", failErr)
		}
		return nil, err
	}

	if err := uc.registry.MarkReady(ctx, doc.ID, chunkCount); err != nil {
		return nil, fmt.Errorf("mark document ready: %w", err)
	}
	doc.Status = domain.StatusReady
	doc.ChunkCount = chunkCount

	uc.publishIngested(ctx, doc.ID)
	return doc, nil
}

func (uc *IngestDocumentUseCase) process(ctx context.Context, doc *domain.Document) (int, error) {
	if err := uc.registry.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return 0, fmt.Errorf("set status=processing: %w", err)
	}

	pages, err := uc.parser.Parse(ctx, doc.StoragePath)
	if err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}

	chunks := uc.chunker.Split(pages)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("document produced zero chunks"))
	}

	// A single loop index drives both the record id and the metadata so
	// the two can never diverge.
	texts := make([]string, len(chunks))
	records := make([]domain.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		records[i] = domain.IndexRecord{
			ID: fmt.Sprintf("%s-%d", doc.ID, i),
			Metadata: domain.ChunkMetadata{
				Source: doc.Filename,
				DocID:  doc.ID,
				Role:   string(doc.Role),
				Page:   chunk.Page,
				Text:   chunk.Text,
			},
		}
	}

	uc.logger.Info("embedding_chunks", "doc_id", doc.ID, "chunks", len(texts))
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}

	uc.logger.Info("upserting_records", "doc_id", doc.ID, "records", len(records))
	if err := uc.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert index records: %w", err)
	}
	uc.logger.Info("upload_complete", "doc_id", doc.ID, "filename", doc.Filename, "records", len(records))

	return len(chunks), nil
}

// publishIngested is best effort: the upload already succeeded and the
// notification must not fail it.
func (uc *IngestDocumentUseCase) publishIngested(ctx context.Context, documentID string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentIngested(ctx, documentID); err != nil {
		uc.logger.Warn("publish_document_ingested", "doc_id", documentID, "error", err)
	}
}
