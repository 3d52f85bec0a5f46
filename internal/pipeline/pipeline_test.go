package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"chunkpipe/internal/config"
	"chunkpipe/internal/store"
)

// runeCodec counts one token per rune, keeping tests deterministic without
// a BPE vocabulary.
type runeCodec struct{}

func (runeCodec) Count(text string) (int, error) { return utf8.RuneCountInString(text), nil }

func (runeCodec) Encode(text string) ([]int, error) {
	ids := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (runeCodec) Decode(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteRune(rune(id))
	}
	return b.String()
}

// periodModel splits prose on periods.
type periodModel struct{}

func (periodModel) Sentences(text string) ([]string, error) {
	var out []string
	for _, p := range strings.SplitAfter(text, ".") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		MaxTokens:        60,
		OverlapTokens:    5,
		FenceMarker:      "```",
		SentenceMaxInput: 1000,
	}
}

func newTestWorker(t *testing.T) (*Worker, *store.FileStore) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	codec := runeCodec{}
	fs, err := store.NewFile(t.TempDir(), codec.Count, log)
	if err != nil {
		t.Fatal(err)
	}
	return New(testConfig(), log, fs, codec, periodModel{}), fs
}

func TestProcessWritesOrderedChunks(t *testing.T) {
	w, fs := newTestWorker(t)
	ctx := context.Background()

	doc := Document{
		ID:       "doc-1",
		Filename: "doc-1.txt",
		Text: "First sentence of the document. Second sentence follows here. " +
			"```\ncode block stays whole\n```" +
			" Third sentence closes it out. And a fourth for good measure.",
	}
	if err := w.Process(ctx, doc); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	chunks, err := fs.ListChunks(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has sequence index %d", i, c.Index)
		}
	}

	// The verbatim block must survive intact in exactly one chunk.
	whole := 0
	for _, c := range chunks {
		if strings.Contains(c.Text, "```\ncode block stays whole\n```") {
			whole++
		}
	}
	if whole != 1 {
		t.Errorf("verbatim block found whole in %d chunks, want 1", whole)
	}
}

func TestProcessIsResumable(t *testing.T) {
	w, fs := newTestWorker(t)
	ctx := context.Background()

	doc := Document{
		ID:       "doc-2",
		Filename: "doc-2.txt",
		Text:     "Alpha sentence one. Beta sentence two. Gamma sentence three. Delta sentence four.",
	}

	if err := w.Process(ctx, doc); err != nil {
		t.Fatal(err)
	}
	first, err := fs.ListChunks(ctx, "doc-2")
	if err != nil {
		t.Fatal(err)
	}

	// Reprocessing the same document must not duplicate or alter output.
	if err := w.Process(ctx, doc); err != nil {
		t.Fatal(err)
	}
	second, err := fs.ListChunks(ctx, "doc-2")
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk count changed on rerun: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d altered on rerun", i)
		}
	}
}

func TestProcessEmptyDocument(t *testing.T) {
	w, fs := newTestWorker(t)
	ctx := context.Background()

	if err := w.Process(ctx, Document{ID: "doc-3", Filename: "doc-3.txt", Text: ""}); err != nil {
		t.Fatalf("empty document should not fail: %v", err)
	}
	chunks, err := fs.ListChunks(ctx, "doc-3")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(chunks))
	}
}
