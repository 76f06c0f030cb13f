package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	key := Key("http://localhost:3000")
	assert.Equal(t, "uiflow:lock:http://localhost:3000", key)

	lease, err := l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	other, err := l.Acquire(ctx, Key("http://localhost:5000"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	// a stale lease must not release the new holder
	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrHeld)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockerExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.nowFn = func() time.Time { return now }

	_, err := l.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = l.Acquire(context.Background(), "k", time.Minute)
	assert.NoError(t, err)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("UIFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("UIFLOW_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedisLocker(ctx, addr, "")
	require.NoError(t, err)
	defer r.Close()

	key := Key("test-" + time.Now().Format(time.RFC3339Nano))
	lease, err := r.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)

	_, err = r.Acquire(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, lease.Release(ctx))
	lease2, err := r.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, lease2.Release(ctx))
}
