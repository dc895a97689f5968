package domain

// ChunkMetadata is the metadata stored alongside every indexed vector and
// returned with each query match.
type ChunkMetadata struct {
	Source string `json:"source"`
	DocID  string `json:"doc_id"`
	Role   string `json:"role"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// IndexRecord is one upsert unit. ID is "{doc_id}-{chunk_index}", so
// re-ingesting the same doc_id overwrites instead of duplicating.
type IndexRecord struct {
	ID       string
	Vector   []float32
	Metadata ChunkMetadata
}

// RetrievalMatch is a transient query result ordered by descending score.
type RetrievalMatch struct {
	Score    float64
	Metadata ChunkMetadata
}
