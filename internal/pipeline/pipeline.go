package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"chunkpipe/internal/chunker"
	"chunkpipe/internal/config"
	"chunkpipe/internal/segment"
	"chunkpipe/internal/sentence"
	"chunkpipe/internal/store"
	"chunkpipe/internal/tokenizer"
)

// Document is one unit of work: a stable identifier assigned upstream plus
// the full normalized text body. Immutable once handed to the pipeline.
type Document struct {
	ID       string
	Filename string
	Text     string
}

// Worker holds per-worker pipeline state. The token codec and the sentence
// boundary model are constructed once per worker and passed explicitly into
// every stage; workers share nothing mutable.
type Worker struct {
	fence    string
	splitter *sentence.Splitter
	asm      *chunker.Assembler
	store    store.Store
	log      *slog.Logger
}

// NewWorker loads the tokenizer vocabulary and the sentence model, the two
// expensive pieces of worker state.
func NewWorker(cfg config.Config, log *slog.Logger, st store.Store) (*Worker, error) {
	codec, err := tokenizer.New(cfg.TokenEncoding)
	if err != nil {
		return nil, err
	}
	model, err := sentence.NewPunktModel()
	if err != nil {
		return nil, err
	}
	return New(cfg, log, st, codec, model), nil
}

// New wires a worker from explicit components.
func New(cfg config.Config, log *slog.Logger, st store.Store, codec chunker.Codec, model sentence.BoundaryModel) *Worker {
	opts := chunker.Options{MaxTokens: cfg.MaxTokens, Overlap: cfg.OverlapTokens}
	return &Worker{
		fence:    cfg.FenceMarker,
		splitter: sentence.NewSplitter(model, cfg.SentenceMaxInput, log),
		asm:      chunker.NewAssembler(codec, opts, log),
		store:    st,
		log:      log,
	}
}

// Process runs segment -> split -> assemble -> write for one document.
// Chunk write failures are logged and the remaining chunks still attempted;
// no transaction spans the whole document. The returned error covers only
// this document.
func (w *Worker) Process(ctx context.Context, doc Document) error {
	log := w.log.With("document_id", doc.ID)

	if _, err := w.store.UpsertDocument(ctx, doc.ID, doc.Filename); err != nil {
		return fmt.Errorf("register document: %w", err)
	}

	spans := segment.Split(doc.Text, w.fence)
	units := chunker.Units(spans, w.splitter.Split)
	chunks := w.asm.Assemble(units)
	log.Info("assembled chunks", "spans", len(spans), "units", len(units), "chunks", len(chunks))

	writeErrs := 0
	for _, c := range chunks {
		created, err := w.store.SaveChunk(ctx, doc.ID, store.Chunk{
			DocumentID: doc.ID,
			Index:      c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
		})
		if err != nil {
			writeErrs++
			log.Error("failed to write chunk", "sequence_index", c.Index, "err", err)
			continue
		}
		if !created {
			log.Info("chunk already present; skipping", "sequence_index", c.Index)
		}
	}

	if writeErrs > 0 {
		if err := w.store.UpdateDocumentStatus(ctx, doc.ID, store.StatusFailed); err != nil {
			log.Error("failed to mark document failed", "err", err)
		}
		return fmt.Errorf("document %s: %d of %d chunk writes failed", doc.ID, writeErrs, len(chunks))
	}
	if err := w.store.UpdateDocumentStatus(ctx, doc.ID, store.StatusReady); err != nil {
		log.Error("failed to mark document ready", "err", err)
	}
	return nil
}
