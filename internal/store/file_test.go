package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	count := func(text string) (int, error) {
		return len(strings.Fields(text)), nil
	}
	s, err := NewFile(t.TempDir(), count, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileStoreSaveChunkIdempotent(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	c := Chunk{Index: 0, Text: "first chunk text", TokenCount: 3}
	created, err := s.SaveChunk(ctx, "doc-1", c)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected first write to create the chunk")
	}

	// Second write of the same chunk must skip, not overwrite.
	c.Text = "different text that must not replace the original"
	created, err = s.SaveChunk(ctx, "doc-1", c)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("expected second write to report already present")
	}

	got, err := s.GetChunk(ctx, "doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "first chunk text" {
		t.Errorf("original chunk was altered: %q", got.Text)
	}
}

func TestFileStoreListChunksOrdered(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	// Write out of order, including a double-digit index so ordering is
	// numeric, not lexicographic.
	for _, i := range []int{10, 0, 2, 1} {
		if _, err := s.SaveChunk(ctx, "doc-2", Chunk{Index: i, Text: "chunk body"}); err != nil {
			t.Fatal(err)
		}
	}

	chunks, err := s.ListChunks(ctx, "doc-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	want := []int{0, 1, 2, 10}
	for i, c := range chunks {
		if c.Index != want[i] {
			t.Errorf("position %d: got index %d, want %d", i, c.Index, want[i])
		}
		if c.TokenCount != 2 {
			t.Errorf("expected recomputed token count 2, got %d", c.TokenCount)
		}
	}
}

func TestFileStoreListChunksByIndex(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.SaveChunk(ctx, "doc-3", Chunk{Index: i, Text: "body"}); err != nil {
			t.Fatal(err)
		}
	}

	chunks, err := s.ListChunksByIndex(ctx, "doc-3", []int64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 || chunks[0].Index != 1 || chunks[1].Index != 3 {
		t.Errorf("unexpected selection: %+v", chunks)
	}
}

func TestFileStoreListChunksMetacharacterID(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	// IDs are opaque strings; glob metacharacters must match literally and
	// must not pull in other documents' chunks.
	const docID = "doc[1-9]*"
	if _, err := s.SaveChunk(ctx, docID, Chunk{Index: 0, Text: "odd id body"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveChunk(ctx, "doc5", Chunk{Index: 0, Text: "other doc"}); err != nil {
		t.Fatal(err)
	}

	chunks, err := s.ListChunks(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "odd id body" {
		t.Errorf("listed the wrong document's chunk: %q", chunks[0].Text)
	}
}

func TestFileStoreGetChunkNotFound(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.GetChunk(context.Background(), "missing-doc", 0)
	if !errors.Is(err, ErrChunkNotFound) {
		t.Errorf("expected ErrChunkNotFound, got %v", err)
	}
}

func TestFileStoreGetDocument(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	if _, err := s.GetDocument(ctx, "doc-4"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}

	if _, err := s.SaveChunk(ctx, "doc-4", Chunk{Index: 0, Text: "body"}); err != nil {
		t.Fatal(err)
	}
	doc, err := s.GetDocument(ctx, "doc-4")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "doc-4" {
		t.Errorf("unexpected document: %+v", doc)
	}
}
