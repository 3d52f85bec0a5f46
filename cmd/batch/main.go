package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"chunkpipe/internal/app"
	"chunkpipe/internal/pipeline"
	"chunkpipe/internal/pool"
)

// The batch runner chunks a directory of normalized text files without the
// queue: one file is one document, identified by its filename stem.
func main() {
	deps, err := app.BuildBatch()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	cfg, log := deps.Config, deps.Log

	if cfg.InputDir == "" {
		log.Error("INPUT_DIR is required for the batch runner")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := listInputs(cfg.InputDir)
	if err != nil {
		log.Error("failed to list input files", "dir", cfg.InputDir, "err", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		log.Info("no input files found", "dir", cfg.InputDir)
		return
	}
	log.Info("starting batch run", "files", len(files), "workers", cfg.Workers)

	throttle := pool.NewThrottle(cfg.CPUThreshold, cfg.ThrottleCooldown, log)
	p := pool.New(cfg.Workers, throttle, log)

	failed := p.Run(ctx, files, func() (pool.ProcessFunc, error) {
		worker, err := pipeline.NewWorker(cfg, log, deps.Store)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, path string) error {
			return processFile(ctx, worker, path)
		}, nil
	})

	log.Info("batch run finished", "files", len(files), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// listInputs returns the .txt files of dir in lexical order so runs are
// reproducible.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func processFile(ctx context.Context, worker *pipeline.Worker, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	doc := pipeline.Document{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Filename: name,
		Text:     string(data),
	}
	return worker.Process(ctx, doc)
}
