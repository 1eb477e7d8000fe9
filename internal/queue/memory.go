package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// MemoryQueue is the in-process Queue used when Redis is unavailable and in
// tests. Tasks do not survive a restart.
type MemoryQueue struct {
	mu        sync.Mutex
	opts      Options
	now       func() time.Time
	scheduled map[string]*Task
	inflight  map[string]inflightTask
	dead      []Task
}

type inflightTask struct {
	task     *Task
	deadline time.Time
}

func NewMemory(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts:      opts.withDefaults(),
		now:       time.Now,
		scheduled: make(map[string]*Task),
		inflight:  make(map[string]inflightTask),
	}
}

// SetClock replaces the time source.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *MemoryQueue) Enqueue(ctx context.Context, name, recordID string) (*Task, error) {
	return q.EnqueueAt(ctx, name, recordID, q.clock())
}

func (q *MemoryQueue) EnqueueAt(_ context.Context, name, recordID string, runAt time.Time) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := newTask(name, recordID, runAt, q.now())
	q.put(t)
	return copyTask(t), nil
}

func (q *MemoryQueue) RetryAfter(_ context.Context, t *Task, delay time.Duration, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.Attempt++
	t.LastError = causeText(cause)
	t.RunAt = q.now().Add(delay).UTC()
	q.put(t)
	return nil
}

func (q *MemoryQueue) Redeliver(_ context.Context, t *Task, delay time.Duration, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.Deliveries++
	t.LastError = causeText(cause)
	if t.Deliveries >= q.opts.MaxDeliveries {
		delete(q.inflight, t.ID)
		delete(q.scheduled, t.ID)
		q.dead = append(q.dead, *copyTask(t))
		return errors.Mark(errors.Newf("task %s exhausted %d deliveries", t.ID, t.Deliveries), ErrDeadLettered)
	}
	t.RunAt = q.now().Add(delay).UTC()
	q.put(t)
	return nil
}

func (q *MemoryQueue) Defer(_ context.Context, t *Task, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.RunAt = runAt.UTC()
	q.put(t)
	return nil
}

func (q *MemoryQueue) put(t *Task) {
	delete(q.inflight, t.ID)
	q.scheduled[t.ID] = copyTask(t)
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next *Task
	for _, t := range q.scheduled {
		if t.RunAt.After(now) {
			continue
		}
		if next == nil || t.RunAt.Before(next.RunAt) {
			next = t
		}
	}
	if next == nil {
		return nil, nil
	}
	delete(q.scheduled, next.ID)
	q.inflight[next.ID] = inflightTask{task: next, deadline: now.Add(q.opts.VisibilityTimeout)}
	return copyTask(next), nil
}

func (q *MemoryQueue) Ack(_ context.Context, t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, t.ID)
	return nil
}

func (q *MemoryQueue) ReapExpired(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	n := 0
	for id, f := range q.inflight {
		if f.deadline.After(now) {
			continue
		}
		delete(q.inflight, id)
		f.task.RunAt = now.UTC()
		q.scheduled[id] = f.task
		n++
	}
	return n, nil
}

// Pending returns copies of the waiting tasks ordered by due time.
func (q *MemoryQueue) Pending() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, 0, len(q.scheduled))
	for _, t := range q.scheduled {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out
}

// InFlight reports how many tasks are claimed and not yet acked.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

// DeadLetters returns copies of the dead-lettered tasks.
func (q *MemoryQueue) DeadLetters() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Task(nil), q.dead...)
}

func (q *MemoryQueue) clock() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now()
}

func copyTask(t *Task) *Task {
	c := *t
	return &c
}
