package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chunkpipe/internal/app"
	"chunkpipe/internal/httputil"
	"chunkpipe/internal/queue"
	"chunkpipe/internal/store"
)

const chunkCacheTTL = 10 * time.Minute

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
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents/upload", uploadHandler(deps))
	r.Get("/api/documents/{id}", documentHandler(deps))
	r.Get("/api/documents/{id}/chunks", chunksHandler(deps))
	r.Get("/api/documents/{id}/chunks/{seq}", chunkHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

// uploadHandler accepts one normalized text document and enqueues it for
// chunking. Extraction and cleanup happen upstream; anything but plain text
// is rejected.
func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" && strings.ToLower(filepath.Ext(header.Filename)) == ".txt" {
			contentType = "text/plain"
		}
		if contentType != "text/plain" {
			httputil.Fail(deps.Log, w, "unsupported file type (only normalized TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		docID := uuid.NewString()
		doc, err := deps.Store.UpsertDocument(ctx, docID, header.Filename)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist document", err, http.StatusInternalServerError)
			return
		}

		payload := chunkTaskPayload{
			DocumentID: doc.ID,
			Filename:   header.Filename,
			Content:    string(content),
		}
		body, err := json.Marshal(payload)
		if err != nil {
			fail(deps, ctx, w, "marshal payload failed", err, doc.ID, http.StatusInternalServerError, true)
			return
		}
		task := queue.Task{Type: queue.TaskTypeChunk, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(deps, ctx, w, "failed to enqueue document; please retry", err, doc.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": doc.ID,
			"status":      doc.Status,
		})
	}
}

// fail is gateway-specific error handler that can mark documents as failed
func fail(deps app.Deps, ctx context.Context, w http.ResponseWriter, message string, err error, docID string, status int, markFailed bool) {
	log := deps.Log.With("document_id", docID)
	if markFailed && docID != "" {
		if upErr := deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusFailed); upErr != nil {
			log.Error("failed to mark document failed", "err", upErr)
		}
	}

	httputil.Fail(log, w, message, err, status)
}

func documentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "id")
		doc, err := deps.Store.GetDocument(r.Context(), docID)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load document", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, doc)
	}
}

// chunksHandler returns the ordered chunks of a document. An optional
// comma-separated "index" query narrows the result to specific sequence
// indexes for downstream packaging.
func chunksHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "id")

		var (
			chunks []store.Chunk
			err    error
		)
		if raw := r.URL.Query().Get("index"); raw != "" {
			indexes, perr := parseIndexes(raw)
			if perr != nil {
				httputil.Fail(deps.Log, w, "invalid index filter", perr, http.StatusBadRequest)
				return
			}
			chunks, err = deps.Store.ListChunksByIndex(r.Context(), docID, indexes)
		} else {
			chunks, err = deps.Store.ListChunks(r.Context(), docID)
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list chunks", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document_id": docID,
			"count":       len(chunks),
			"chunks":      chunks,
		})
	}
}

func chunkHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "id")
		seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
		if err != nil || seq < 0 {
			httputil.Fail(deps.Log, w, "invalid sequence index", err, http.StatusBadRequest)
			return
		}

		if cached, err := deps.Cache.GetChunk(r.Context(), docID, seq); err != nil {
			deps.Log.Warn("cache lookup failed", "document_id", docID, "err", err)
		} else if cached != nil {
			httputil.WriteJSON(w, http.StatusOK, cached)
			return
		}

		chunk, err := deps.Store.GetChunk(r.Context(), docID, seq)
		if err != nil {
			if errors.Is(err, store.ErrChunkNotFound) {
				httputil.Fail(deps.Log, w, "chunk not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load chunk", err, http.StatusInternalServerError)
			return
		}

		if err := deps.Cache.SetChunk(r.Context(), chunk, chunkCacheTTL); err != nil {
			deps.Log.Warn("failed to cache chunk", "document_id", docID, "err", err)
		}
		httputil.WriteJSON(w, http.StatusOK, chunk)
	}
}

func parseIndexes(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad sequence index %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
