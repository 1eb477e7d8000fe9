package main

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/lease"
	"launchpad/internal/queue"
)

func queueConfig(addr string) *config.Config {
	cfg := &config.Config{}
	cfg.Redis.Addr = addr
	cfg.Queue.Prefix = "launchpad"
	return cfg
}

func TestSharedQueueRequiresRedis(t *testing.T) {
	client, q, locker, err := openQueue(queueConfig(""), zap.NewNop(), sharedQueue)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRedisRequired))
	assert.Nil(t, client)
	assert.Nil(t, q)
	assert.Nil(t, locker)
}

func TestSharedQueueFailsOnUnreachableRedis(t *testing.T) {
	// Nothing listens on port 1.
	_, q, _, err := openQueue(queueConfig("127.0.0.1:1"), zap.NewNop(), sharedQueue)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRedisRequired))
	assert.Contains(t, err.Error(), "connect to redis")
	assert.Nil(t, q)
}

func TestInProcessQueueFallsBackToMemory(t *testing.T) {
	for _, addr := range []string{"", "127.0.0.1:1"} {
		client, q, locker, err := openQueue(queueConfig(addr), zap.NewNop(), inProcessQueue)
		require.NoError(t, err, addr)
		assert.Nil(t, client)
		assert.IsType(t, &queue.MemoryQueue{}, q)
		assert.IsType(t, &lease.MemoryLocker{}, locker)
	}
}
