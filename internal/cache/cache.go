package cache

import (
	"context"
	"time"

	"chunkpipe/internal/store"
)

// Cache provides read caching for persisted chunks in front of the store.
type Cache interface {
	// GetChunk retrieves a cached chunk by (document_id, sequence_index).
	// Returns nil on a miss.
	GetChunk(ctx context.Context, docID string, index int) (*store.Chunk, error)

	// SetChunk stores a chunk with TTL.
	SetChunk(ctx context.Context, c store.Chunk, ttl time.Duration) error

	// InvalidateDocument removes all cached chunks for a document; called
	// before a document is re-chunked.
	InvalidateDocument(ctx context.Context, docID string) error

	// Close closes the cache connection.
	Close() error
}
