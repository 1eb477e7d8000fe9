package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps task bodies in a hash and schedules ids in two sorted
// sets: due time for waiting tasks, visibility deadline for claimed ones.
type RedisQueue struct {
	client *redis.Client
	opts   Options
	now    func() time.Time

	tasksKey     string
	scheduledKey string
	inflightKey  string
	deadKey      string
}

func NewRedis(client *redis.Client, opts Options) *RedisQueue {
	opts = opts.withDefaults()
	return &RedisQueue{
		client:       client,
		opts:         opts,
		now:          time.Now,
		tasksKey:     opts.Prefix + ":body",
		scheduledKey: opts.Prefix + ":scheduled",
		inflightKey:  opts.Prefix + ":inflight",
		deadKey:      opts.Prefix + ":dead",
	}
}

// KEYS: scheduled, inflight, body. ARGV: now ms, visibility deadline ms.
var dequeueScript = redis.NewScript(`
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, 1)
if #ids == 0 then
	return false
end
local id = ids[1]
redis.call("ZREM", KEYS[1], id)
local body = redis.call("HGET", KEYS[3], id)
if not body then
	return false
end
redis.call("ZADD", KEYS[2], ARGV[2], id)
return body
`)

// KEYS: inflight, body. ARGV: id.
var ackScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	redis.call("HDEL", KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// KEYS: inflight, scheduled. ARGV: now ms.
var reapScript = redis.NewScript(`
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
for _, id in ipairs(ids) do
	redis.call("ZREM", KEYS[1], id)
	redis.call("ZADD", KEYS[2], ARGV[1], id)
end
return #ids
`)

func (q *RedisQueue) Enqueue(ctx context.Context, name, recordID string) (*Task, error) {
	now := q.now()
	return q.EnqueueAt(ctx, name, recordID, now)
}

func (q *RedisQueue) EnqueueAt(ctx context.Context, name, recordID string, runAt time.Time) (*Task, error) {
	t := newTask(name, recordID, runAt, q.now())
	if err := q.schedule(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (q *RedisQueue) RetryAfter(ctx context.Context, t *Task, delay time.Duration, cause error) error {
	t.Attempt++
	t.LastError = causeText(cause)
	t.RunAt = q.now().Add(delay).UTC()
	return q.schedule(ctx, t)
}

func (q *RedisQueue) Redeliver(ctx context.Context, t *Task, delay time.Duration, cause error) error {
	t.Deliveries++
	t.LastError = causeText(cause)
	if t.Deliveries >= q.opts.MaxDeliveries {
		return q.deadLetter(ctx, t)
	}
	t.RunAt = q.now().Add(delay).UTC()
	return q.schedule(ctx, t)
}

func (q *RedisQueue) Defer(ctx context.Context, t *Task, runAt time.Time) error {
	t.RunAt = runAt.UTC()
	return q.schedule(ctx, t)
}

func (q *RedisQueue) schedule(ctx context.Context, t *Task) error {
	body, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "encode task")
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.tasksKey, t.ID, body)
		p.ZRem(ctx, q.inflightKey, t.ID)
		p.ZAdd(ctx, q.scheduledKey, redis.Z{Score: float64(t.RunAt.UnixMilli()), Member: t.ID})
		return nil
	})
	return errors.Wrapf(err, "schedule task %s", t.ID)
}

func (q *RedisQueue) deadLetter(ctx context.Context, t *Task) error {
	body, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "encode task")
	}
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, q.inflightKey, t.ID)
		p.ZRem(ctx, q.scheduledKey, t.ID)
		p.HDel(ctx, q.tasksKey, t.ID)
		p.RPush(ctx, q.deadKey, body)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "dead-letter task %s", t.ID)
	}
	return errors.Mark(errors.Newf("task %s exhausted %d deliveries", t.ID, t.Deliveries), ErrDeadLettered)
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	now := q.now()
	deadline := now.Add(q.opts.VisibilityTimeout)
	res, err := dequeueScript.Run(ctx, q.client,
		[]string{q.scheduledKey, q.inflightKey, q.tasksKey},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(deadline.UnixMilli(), 10),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "dequeue")
	}

	var t Task
	if err := json.Unmarshal([]byte(res), &t); err != nil {
		return nil, errors.Wrap(err, "decode task")
	}
	return &t, nil
}

func (q *RedisQueue) Ack(ctx context.Context, t *Task) error {
	err := ackScript.Run(ctx, q.client, []string{q.inflightKey, q.tasksKey}, t.ID).Err()
	return errors.Wrapf(err, "ack task %s", t.ID)
}

func (q *RedisQueue) ReapExpired(ctx context.Context) (int, error) {
	n, err := reapScript.Run(ctx, q.client, []string{q.inflightKey, q.scheduledKey},
		strconv.FormatInt(q.now().UnixMilli(), 10)).Int()
	if err != nil {
		return 0, errors.Wrap(err, "reap expired tasks")
	}
	return n, nil
}

// DeadLetters returns up to limit dead-lettered tasks, oldest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]Task, error) {
	raw, err := q.client.LRange(ctx, q.deadKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(raw))
	for _, r := range raw {
		var t Task
		if err := json.Unmarshal([]byte(r), &t); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}
