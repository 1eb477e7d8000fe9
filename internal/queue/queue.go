// Package queue is the delayed task queue that drives job handlers. Delivery
// is at-least-once: a task whose worker dies is handed out again after its
// visibility timeout.
package queue

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrDeadLettered is returned by Redeliver once a task ran out of deliveries.
var ErrDeadLettered = errors.New("task moved to dead letters")

// Task is one pending handler invocation for a job record.
type Task struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RecordID string `json:"record_id"`
	// Attempt counts application retries requested through RetryAfter.
	Attempt int `json:"attempt"`
	// Deliveries counts infrastructure redeliveries; it never affects the
	// record's own retry counter.
	Deliveries int       `json:"deliveries"`
	RunAt      time.Time `json:"run_at"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// Queue holds tasks until they are due and hands each due task to one worker
// at a time.
type Queue interface {
	Enqueue(ctx context.Context, name, recordID string) (*Task, error)
	EnqueueAt(ctx context.Context, name, recordID string, runAt time.Time) (*Task, error)
	// RetryAfter schedules the same invocation again after delay with the
	// attempt counter advanced.
	RetryAfter(ctx context.Context, t *Task, delay time.Duration, cause error) error
	// Redeliver hands the task out again after delay because handling failed
	// for infrastructure reasons.
	Redeliver(ctx context.Context, t *Task, delay time.Duration, cause error) error
	// Defer pushes the task back to runAt without touching either counter.
	Defer(ctx context.Context, t *Task, runAt time.Time) error
	// Dequeue claims one due task, or returns nil when none is due.
	Dequeue(ctx context.Context) (*Task, error)
	// Ack finishes a claimed task. It is a no-op once the task was
	// rescheduled by RetryAfter, Redeliver or Defer.
	Ack(ctx context.Context, t *Task) error
	// ReapExpired returns claimed tasks past their visibility timeout to the
	// due set.
	ReapExpired(ctx context.Context) (int, error)
}

type Options struct {
	Prefix            string
	VisibilityTimeout time.Duration
	MaxDeliveries     int
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "launchpad:tasks"
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = 5 * time.Minute
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 10
	}
	return o
}

func newTask(name, recordID string, runAt, now time.Time) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		RecordID:   recordID,
		RunAt:      runAt.UTC(),
		EnqueuedAt: now.UTC(),
	}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
