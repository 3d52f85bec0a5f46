package pool

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Throttle gates new dispatch when the machine is overloaded. Already
// running work is never paused, only the hand-out of new documents.
type Throttle struct {
	threshold float64
	cooldown  time.Duration
	log       *slog.Logger
	percent   func() (float64, error)
}

func NewThrottle(threshold float64, cooldown time.Duration, log *slog.Logger) *Throttle {
	return &Throttle{
		threshold: threshold,
		cooldown:  cooldown,
		log:       log,
		percent:   cpuPercent,
	}
}

func cpuPercent() (float64, error) {
	vals, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return vals[0], nil
}

// Wait blocks until CPU usage drops below the threshold or ctx is done.
// Sampling failures do not block dispatch.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		usage, err := t.percent()
		if err != nil {
			t.log.Warn("cpu sample failed; dispatching anyway", "err", err)
			return nil
		}
		if usage <= t.threshold {
			return nil
		}
		t.log.Warn("high cpu usage; pausing dispatch", "usage_pct", usage, "cooldown", t.cooldown)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cooldown):
		}
	}
}

// ProcessFunc handles one document, identified by its source path, start to
// finish.
type ProcessFunc func(ctx context.Context, path string) error

// NewWorkerFunc builds a per-worker processor. It is called once per worker
// goroutine so expensive worker state (token vocabulary, sentence model) is
// loaded a single time per worker.
type NewWorkerFunc func() (ProcessFunc, error)

// Pool runs one document per job across a fixed set of workers. A failing
// document is logged and abandoned; the pool continues with the rest.
type Pool struct {
	size     int
	throttle *Throttle
	log      *slog.Logger
}

func New(size int, throttle *Throttle, log *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{size: size, throttle: throttle, log: log}
}

// Run dispatches items to the workers and blocks until all accepted work is
// done. It returns the number of items that failed.
func (p *Pool) Run(ctx context.Context, items []string, newWorker NewWorkerFunc) int {
	jobs := make(chan string)
	var failed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			process, err := newWorker()
			if err != nil {
				p.log.Error("worker init failed", "worker", id, "err", err)
			}
			for item := range jobs {
				if err != nil {
					failed.Add(1)
					continue
				}
				if perr := process(ctx, item); perr != nil {
					failed.Add(1)
					p.log.Error("document failed", "item", item, "err", perr)
				}
			}
		}(i)
	}

dispatch:
	for _, item := range items {
		if err := p.throttle.Wait(ctx); err != nil {
			break
		}
		select {
		case jobs <- item:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	return int(failed.Load())
}
