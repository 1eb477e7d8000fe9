package queue

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMemory(t *testing.T) (*MemoryQueue, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	q := NewMemory(Options{VisibilityTimeout: time.Minute, MaxDeliveries: 3})
	q.SetClock(clock.now)
	return q, clock
}

func TestMemoryDelayedDelivery(t *testing.T) {
	ctx := context.Background()
	q, clock := newMemory(t)

	_, err := q.EnqueueAt(ctx, "publish", "post-1", clock.t.Add(time.Minute))
	require.NoError(t, err)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "not due yet")

	clock.advance(time.Minute)
	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "post-1", got.RecordID)
	assert.Equal(t, 1, q.InFlight())

	require.NoError(t, q.Ack(ctx, got))
	assert.Zero(t, q.InFlight())
	assert.Empty(t, q.Pending())
}

func TestMemoryRetryAfterPreservesIdentity(t *testing.T) {
	ctx := context.Background()
	q, clock := newMemory(t)

	orig, err := q.Enqueue(ctx, "publish", "post-1")
	require.NoError(t, err)
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.RetryAfter(ctx, got, 60*time.Second, errors.New("429")))
	require.NoError(t, q.Ack(ctx, got), "ack after reschedule is a no-op")

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orig.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempt)
	assert.Equal(t, clock.t.Add(60*time.Second), pending[0].RunAt)
	assert.Equal(t, "429", pending[0].LastError)
}

func TestMemoryRedeliverDeadLetters(t *testing.T) {
	ctx := context.Background()
	q, _ := newMemory(t)

	_, err := q.Enqueue(ctx, "publish", "post-1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NoError(t, q.Redeliver(ctx, got, 0, errors.New("db down")))
	}
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	err = q.Redeliver(ctx, got, 0, errors.New("db down"))
	assert.True(t, errors.Is(err, ErrDeadLettered))
	assert.Len(t, q.DeadLetters(), 1)
	assert.Empty(t, q.Pending())
	assert.Zero(t, q.InFlight())
}

func TestMemoryReapExpired(t *testing.T) {
	ctx := context.Background()
	q, clock := newMemory(t)

	_, err := q.Enqueue(ctx, "publish", "post-1")
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)

	n, err := q.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.advance(2 * time.Minute)
	n, err = q.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestPoolDispatch(t *testing.T) {
	ctx := context.Background()
	q, _ := newMemory(t)
	p := NewPool(q, PoolOptions{RedeliveryDelay: time.Hour}, zap.NewNop())

	var handled int32
	p.Handle("ok", func(ctx context.Context, task *Task) error {
		atomic.AddInt32(&handled, 1)
		return nil
	})
	p.Handle("broken", func(ctx context.Context, task *Task) error {
		return errors.New("persistence failed")
	})
	p.Handle("panics", func(ctx context.Context, task *Task) error {
		panic("boom")
	})

	for _, name := range []string{"ok", "broken", "panics", "unknown"} {
		_, err := q.Enqueue(ctx, name, "r")
		require.NoError(t, err)
	}

	n, err := p.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.EqualValues(t, 1, handled)
	assert.Zero(t, q.InFlight())

	pending := q.Pending()
	require.Len(t, pending, 2, "failed tasks wait for redelivery")
	for _, task := range pending {
		assert.Equal(t, 1, task.Deliveries)
		assert.Zero(t, task.Attempt)
	}
}

func TestPoolRunStopsOnCancel(t *testing.T) {
	q, _ := newMemory(t)
	p := NewPool(q, PoolOptions{Workers: 3, PollInterval: 10 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test:" + t.Name() + ":" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		client.Del(context.Background(), prefix+":body", prefix+":scheduled", prefix+":inflight", prefix+":dead")
	})
	q := NewRedis(client, Options{Prefix: prefix, VisibilityTimeout: time.Minute, MaxDeliveries: 2})

	task, err := q.Enqueue(ctx, "publish", "post-1")
	require.NoError(t, err)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)

	require.NoError(t, q.RetryAfter(ctx, got, 0, errors.New("429")))
	require.NoError(t, q.Ack(ctx, got))

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Attempt)

	err = q.Redeliver(ctx, got, 0, errors.New("db"))
	require.NoError(t, err)
	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	err = q.Redeliver(ctx, got, 0, errors.New("db"))
	assert.True(t, errors.Is(err, ErrDeadLettered))

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
}
