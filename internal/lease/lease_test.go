package lease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	release, ok, err := l.Acquire(ctx, "post:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "post:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = l.Acquire(ctx, "post:2", time.Minute)
	assert.True(t, ok, "other keys are independent")

	release()
	release()
	_, ok, _ = l.Acquire(ctx, "post:1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockerExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemory()
	l.now = func() time.Time { return now }

	staleRelease, ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	require.True(t, ok, "expired leases can be taken over")

	// The previous holder cannot free the new lease.
	staleRelease()
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestNewWithoutRedisFallsBackToMemory(t *testing.T) {
	_, isMemory := New(nil, "x").(*MemoryLocker)
	assert.True(t, isMemory)
}
