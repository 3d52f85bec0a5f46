package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func staticThrottle(usage float64) *Throttle {
	return &Throttle{
		threshold: 85,
		cooldown:  time.Millisecond,
		log:       testLogger(),
		percent:   func() (float64, error) { return usage, nil },
	}
}

func TestPoolProcessesAllItems(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	var inits atomic.Int32

	p := New(3, staticThrottle(10), testLogger())
	failed := p.Run(context.Background(), []string{"a", "b", "c", "d", "e"}, func() (ProcessFunc, error) {
		inits.Add(1)
		return func(_ context.Context, item string) error {
			mu.Lock()
			seen[item] = true
			mu.Unlock()
			return nil
		}, nil
	})

	if failed != 0 {
		t.Errorf("expected no failures, got %d", failed)
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 items processed, got %d", len(seen))
	}
	// One init per worker, not per item.
	if n := inits.Load(); n != 3 {
		t.Errorf("expected 3 worker inits, got %d", n)
	}
}

func TestPoolIsolatesFailures(t *testing.T) {
	p := New(2, staticThrottle(10), testLogger())

	var done atomic.Int32
	failed := p.Run(context.Background(), []string{"ok-1", "bad", "ok-2"}, func() (ProcessFunc, error) {
		return func(_ context.Context, item string) error {
			if item == "bad" {
				return errors.New("unrecoverable")
			}
			done.Add(1)
			return nil
		}, nil
	})

	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
	if done.Load() != 2 {
		t.Errorf("expected remaining documents to complete, got %d", done.Load())
	}
}

func TestPoolWorkerInitFailure(t *testing.T) {
	p := New(1, staticThrottle(10), testLogger())

	failed := p.Run(context.Background(), []string{"a", "b"}, func() (ProcessFunc, error) {
		return nil, errors.New("model load failed")
	})
	if failed != 2 {
		t.Errorf("expected all items failed when every worker init fails, got %d", failed)
	}
}

func TestThrottleWaitsForCooldown(t *testing.T) {
	calls := 0
	th := &Throttle{
		threshold: 85,
		cooldown:  time.Millisecond,
		log:       testLogger(),
		percent: func() (float64, error) {
			calls++
			if calls < 3 {
				return 95, nil // overloaded for the first two samples
			}
			return 20, nil
		},
	}

	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 samples, got %d", calls)
	}
}

func TestThrottleRespectsContext(t *testing.T) {
	th := staticThrottle(99) // permanently overloaded
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := th.Wait(ctx); err == nil {
		t.Error("expected context error from cancelled wait")
	}
}
