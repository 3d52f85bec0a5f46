package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertDocument(ctx context.Context, id, filename string) (Document, error) {
	args := m.Called(ctx, id, filename)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, id string) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) SaveChunk(ctx context.Context, docID string, c Chunk) (bool, error) {
	args := m.Called(ctx, docID, c)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListChunks(ctx context.Context, docID string) ([]Chunk, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).([]Chunk), args.Error(1)
}

func (m *MockStore) ListChunksByIndex(ctx context.Context, docID string, indexes []int64) ([]Chunk, error) {
	args := m.Called(ctx, docID, indexes)
	return args.Get(0).([]Chunk), args.Error(1)
}

func (m *MockStore) GetChunk(ctx context.Context, docID string, index int) (Chunk, error) {
	args := m.Called(ctx, docID, index)
	return args.Get(0).(Chunk), args.Error(1)
}
