package store

import (
	"context"
	"errors"
	"time"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrChunkNotFound    = errors.New("chunk not found")
)

// Document is the pipeline's view of one source document: a stable opaque
// identifier assigned upstream plus processing status.
type Document struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Chunk is one persisted output unit, addressable by
// (document_id, sequence_index).
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"sequence_index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Store persists documents and their ordered chunks. SaveChunk is
// idempotent: writing a chunk that already exists is a no-op reported as
// "already present" (created=false), which makes a chunking run safely
// resumable after a crash.
type Store interface {
	UpsertDocument(ctx context.Context, id, filename string) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error
	SaveChunk(ctx context.Context, docID string, c Chunk) (created bool, err error)
	ListChunks(ctx context.Context, docID string) ([]Chunk, error)
	ListChunksByIndex(ctx context.Context, docID string, indexes []int64) ([]Chunk, error)
	GetChunk(ctx context.Context, docID string, index int) (Chunk, error)
}
