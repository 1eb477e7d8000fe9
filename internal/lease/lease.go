// Package lease provides short-lived exclusive keys: one holder per key until
// it releases or the TTL runs out.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out exclusive leases on string keys.
type Locker interface {
	// Acquire returns ok=false when another holder owns the key. release is
	// safe to call more than once and never frees a lease taken over by
	// someone else after expiry.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// New returns a Redis-backed locker, or an in-memory one when client is nil.
func New(client *redis.Client, prefix string) Locker {
	if client == nil {
		return NewMemory()
	}
	return &redisLocker{client: client, prefix: prefix}
}

type redisLocker struct {
	client *redis.Client
	prefix string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := l.prefix + ":" + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the caller's context is done.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.client, []string{k}, token).Err()
		})
	}, true, nil
}

// MemoryLocker is the in-process Locker used when Redis is unavailable.
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[string]memoryLease
	nextGC time.Time
	now    func() time.Time
}

type memoryLease struct {
	token   string
	expires time.Time
}

// NewMemory returns a process-local locker.
func NewMemory() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLease),
		now:  time.Now,
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.expires.After(now) {
		return noop, false, nil
	}

	token := uuid.NewString()
	l.held[key] = memoryLease{token: token, expires: now.Add(ttl)}
	if now.After(l.nextGC) {
		for k, v := range l.held {
			if v.expires.Before(now) {
				delete(l.held, k)
			}
		}
		l.nextGC = now.Add(time.Minute)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
	}, true, nil
}

func noop() {}
