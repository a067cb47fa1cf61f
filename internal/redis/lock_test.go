package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client, 2*time.Second), mr, client
}

func TestWithSlotLock_RunsAndReleases(t *testing.T) {
	locker, mr, _ := newTestLocker(t)
	key := SlotKey(uuid.New(), "2026-01-05")

	ran := false
	err := locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(key), "lock key should be held inside the critical section")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(key), "lock key should be released")
}

func TestWithSlotLock_BusyKey(t *testing.T) {
	locker, mr, _ := newTestLocker(t)
	key := SlotKey(uuid.New(), "2026-01-05")
	require.NoError(t, mr.Set(key, "someone-else"))

	err := locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error {
		t.Fatal("critical section must not run while the key is held")
		return nil
	})

	assert.ErrorIs(t, err, ErrLockNotAcquired)
	got, _ := mr.Get(key)
	assert.Equal(t, "someone-else", got, "foreign lock must not be released")
}

func TestWithSlotLock_PropagatesErrorAndReleases(t *testing.T) {
	locker, mr, _ := newTestLocker(t)
	key := SlotKey(uuid.New(), "2026-01-06")
	boom := errors.New("boom")

	err := locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key))
}

func TestWithSlotLock_SetsTTL(t *testing.T) {
	locker, mr, _ := newTestLocker(t)
	key := SlotKey(uuid.New(), "2026-01-07")

	err := locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error {
		assert.Equal(t, 2*time.Second, mr.TTL(key))
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
}

func TestSlotKey(t *testing.T) {
	id := uuid.MustParse("5f0c3f8e-6c1d-4c2a-9b1e-2f6a8d9e0b11")
	assert.Equal(t, "lock:booking-day:5f0c3f8e-6c1d-4c2a-9b1e-2f6a8d9e0b11:2026-01-05", SlotKey(id, "2026-01-05"))
}

func TestReadyCheck(t *testing.T) {
	_, _, client := newTestLocker(t)
	assert.NoError(t, ReadyCheck(client)(context.Background()))

	unreachable := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer unreachable.Close()
	assert.Error(t, ReadyCheck(unreachable)(context.Background()))
	assert.Error(t, ReadyCheck(nil)(context.Background()))
}
