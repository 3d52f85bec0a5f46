package cache

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chunkpipe/internal/store"
)

// MockCache is a mock implementation of Cache using testify/mock.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetChunk(ctx context.Context, docID string, index int) (*store.Chunk, error) {
	args := m.Called(ctx, docID, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Chunk), args.Error(1)
}

func (m *MockCache) SetChunk(ctx context.Context, chunk store.Chunk, ttl time.Duration) error {
	args := m.Called(ctx, chunk, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateDocument(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
