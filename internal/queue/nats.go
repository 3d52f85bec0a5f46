package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"chunkpipe/internal/retry"
)

const (
	subjectPrefix = "tasks."
	groupPrefix   = "workers-"

	// defaultMaxAttempts bounds redelivery of a failing task before it is
	// dropped with an error log.
	defaultMaxAttempts = 5
	retryBase          = time.Second
)

func subjectFor(t TaskType) string { return subjectPrefix + string(t) }
func groupFor(t TaskType) string   { return groupPrefix + string(t) }

// NewNATS constructs a queue on core NATS subjects, one subject per task
// type with a per-type worker group so each task is delivered to a single
// chunker instance.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subjectFor(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(subjectFor(taskType), groupFor(taskType), func(msg *nats.Msg) {
		q.deliver(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

// deliver decodes one message and runs the handler, honoring the task's
// NotBefore delay. Handler failure re-enqueues with backoff until the
// attempt budget is spent.
func (q *natsQueue) deliver(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	if err := handler(ctx, task); err != nil {
		q.requeue(ctx, task, err)
	}
}

func (q *natsQueue) requeue(ctx context.Context, task Task, handlerErr error) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = defaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts, "err", handlerErr)
		return
	}

	task.NotBefore = time.Now().Add(retry.ExponentialBackoff(task.Attempts, retryBase))
	if err := q.Enqueue(ctx, task); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
	}
}
