package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"chunkpipe/internal/app"
	"chunkpipe/internal/cache"
	"chunkpipe/internal/httputil"
	"chunkpipe/internal/pipeline"
	"chunkpipe/internal/queue"
)

type chunkTaskPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("chunker worker starting")

	// One tokenizer vocabulary and one sentence model for the lifetime of
	// this worker process.
	worker, err := pipeline.NewWorker(deps.Config, deps.Log, deps.Store)
	if err != nil {
		deps.Log.Error("failed to build pipeline worker", "err", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(context.Background())

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeChunk, func(ctx context.Context, task queue.Task) error {
			var payload chunkTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleChunk(ctx, deps.Log, deps.Cache, worker, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "chunker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("chunker service stopped", "err", err)
	}
}

// handleChunk runs the pipeline for one document. A pipeline failure is
// scoped to that document: it is logged and the task is not re-queued, so
// one bad document never stalls the stream.
func handleChunk(ctx context.Context, log *slog.Logger, c cache.Cache, worker *pipeline.Worker, payload chunkTaskPayload) error {
	if payload.DocumentID == "" {
		log.Error("chunk task missing document id", "filename", payload.Filename)
		return nil
	}

	// Stale cached chunks would otherwise survive a re-submission.
	if err := c.InvalidateDocument(ctx, payload.DocumentID); err != nil {
		log.Warn("failed to invalidate cached chunks", "document_id", payload.DocumentID, "err", err)
	}

	doc := pipeline.Document{
		ID:       payload.DocumentID,
		Filename: payload.Filename,
		Text:     payload.Content,
	}
	if err := worker.Process(ctx, doc); err != nil {
		log.Error("document abandoned", "document_id", doc.ID, "err", err)
	}
	return nil
}
