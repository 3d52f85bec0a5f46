package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CountFunc computes the token count of a chunk text with the pipeline's
// shared vocabulary. The file layout stores only text, so counts are
// recomputed on read.
type CountFunc func(text string) (int, error)

// FileStore persists each chunk as its own file named
// <document_id>_chunk_<n>.txt (n is 1-based). An existing file is never
// overwritten; writing it again is reported as already present, which makes
// a partially written document resumable.
type FileStore struct {
	dir   string
	count CountFunc
	log   *slog.Logger
}

func NewFile(dir string, count CountFunc, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}
	return &FileStore{dir: dir, count: count, log: log}, nil
}

func (s *FileStore) chunkPath(docID string, index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_chunk_%d.txt", docID, index+1))
}

// UpsertDocument has no backing row in the file layout; the document simply
// starts existing once its first chunk is written.
func (s *FileStore) UpsertDocument(_ context.Context, id, filename string) (Document, error) {
	return Document{ID: id, Filename: filename, Status: StatusProcessing, CreatedAt: time.Now()}, nil
}

func (s *FileStore) GetDocument(ctx context.Context, id string) (Document, error) {
	chunks, err := s.ListChunks(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if len(chunks) == 0 {
		return Document{}, ErrDocumentNotFound
	}
	return Document{ID: id, Status: StatusReady}, nil
}

func (s *FileStore) UpdateDocumentStatus(context.Context, string, DocumentStatus) error {
	return nil
}

func (s *FileStore) SaveChunk(_ context.Context, docID string, c Chunk) (bool, error) {
	path := s.chunkPath(docID, c.Index)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(c.Text), 0o644); err != nil {
		return false, fmt.Errorf("write chunk %s/%d: %w", docID, c.Index, err)
	}
	return true, nil
}

func (s *FileStore) ListChunks(_ context.Context, docID string) ([]Chunk, error) {
	// Plain prefix scan; document IDs are opaque and may contain characters
	// that glob patterns would misread.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var out []Chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		index, ok := parseChunkIndex(path, docID)
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chunk %s: %w", path, err)
		}
		text := string(data)
		count, err := s.count(text)
		if err != nil {
			s.log.Warn("failed to count chunk tokens; recording zero", "path", path, "err", err)
		}
		out = append(out, Chunk{DocumentID: docID, Index: index, Text: text, TokenCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *FileStore) ListChunksByIndex(ctx context.Context, docID string, indexes []int64) ([]Chunk, error) {
	wanted := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		wanted[int(i)] = true
	}
	all, err := s.ListChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	var out []Chunk
	for _, c := range all {
		if wanted[c.Index] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *FileStore) GetChunk(_ context.Context, docID string, index int) (Chunk, error) {
	path := s.chunkPath(docID, index)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Chunk{}, ErrChunkNotFound
		}
		return Chunk{}, fmt.Errorf("read chunk %s: %w", path, err)
	}
	text := string(data)
	count, err := s.count(text)
	if err != nil {
		s.log.Warn("failed to count chunk tokens; recording zero", "path", path, "err", err)
	}
	return Chunk{DocumentID: docID, Index: index, Text: text, TokenCount: count}, nil
}

// parseChunkIndex recovers the zero-based sequence index from a chunk file
// path produced by chunkPath.
func parseChunkIndex(path, docID string) (int, bool) {
	base := filepath.Base(path)
	prefix := docID + "_chunk_"
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ".txt") {
		return 0, false
	}
	numStr := strings.TrimSuffix(strings.TrimPrefix(base, prefix), ".txt")
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
