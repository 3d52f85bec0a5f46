package cache

import (
	"context"
	"testing"
	"time"

	"chunkpipe/internal/store"
)

func TestNoOpCacheAlwaysMisses(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	chunk := store.Chunk{DocumentID: "doc-1", Index: 0, Text: "body", TokenCount: 1}
	if err := c.SetChunk(ctx, chunk, time.Minute); err != nil {
		t.Fatalf("SetChunk failed: %v", err)
	}

	got, err := c.GetChunk(ctx, "doc-1", 0)
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}
	if got != nil {
		t.Error("expected cache miss from no-op cache")
	}
}

func TestNoOpCacheInvalidateAndClose(t *testing.T) {
	c := NewNoOpCache()

	if err := c.InvalidateDocument(context.Background(), "doc-1"); err != nil {
		t.Errorf("InvalidateDocument failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
