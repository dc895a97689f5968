package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the registry record for an uploaded knowledge-base file.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Role        Role           `json:"role"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PageText is one page of extracted document text.
type PageText struct {
	Page int
	Text string
}

// Chunk is a bounded slice of a document's text tagged with the page it
// was extracted from. Role travels with the chunk into index metadata and
// is never altered after ingestion.
type Chunk struct {
	Text string
	Page int
}
