package cache

import (
	"context"
	"time"

	"chunkpipe/internal/store"
)

// NoOpCache is a cache implementation that does nothing. Used as a fallback
// when Redis is unavailable - all operations succeed but no actual caching
// occurs (always cache miss).
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetChunk always returns nil (cache miss).
func (c *NoOpCache) GetChunk(ctx context.Context, docID string, index int) (*store.Chunk, error) {
	return nil, nil
}

// SetChunk does nothing and always succeeds.
func (c *NoOpCache) SetChunk(ctx context.Context, chunk store.Chunk, ttl time.Duration) error {
	return nil
}

// InvalidateDocument does nothing and always succeeds.
func (c *NoOpCache) InvalidateDocument(ctx context.Context, docID string) error {
	return nil
}

// Close does nothing and always succeeds.
func (c *NoOpCache) Close() error {
	return nil
}
