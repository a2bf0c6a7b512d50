package repository

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autoflightlog/internal/config"
	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestRedisLocker(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	clock := newFakeClock()
	locker := NewRedisLocker(client, "", time.Minute, clock)
	ctx := context.Background()

	t.Run("AcquireStoresRecord", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "owner-a")
		require.NoError(t, err)
		assert.True(t, ok)

		raw, err := s.Get(models.DefaultLockKey)
		require.NoError(t, err)

		var rec lockRecord
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))
		assert.Equal(t, "owner-a", rec.OwnerID)
		assert.Equal(t, clock.Now().UnixMilli(), rec.At)
		assert.Equal(t, clock.Now().Add(time.Minute).UnixMilli(), rec.Until)
		assert.True(t, s.TTL(models.DefaultLockKey) > 0)
	})

	t.Run("Reentrant", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "owner-a")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("OtherOwnerBlocked", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "owner-b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReleaseByNonOwnerIgnored", func(t *testing.T) {
		require.NoError(t, locker.Release(ctx, "owner-b"))
		assert.True(t, s.Exists(models.DefaultLockKey))
	})

	t.Run("ReleaseByOwner", func(t *testing.T) {
		require.NoError(t, locker.Release(ctx, "owner-a"))
		assert.False(t, s.Exists(models.DefaultLockKey))

		ok, err := locker.Acquire(ctx, "owner-b")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, locker.Release(ctx, "owner-b"))
	})

	t.Run("ExpiredRecordTakenOver", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "owner-a")
		require.NoError(t, err)
		require.True(t, ok)

		clock.Advance(2 * time.Minute)

		ok, err = locker.Acquire(ctx, "owner-b")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, locker.Release(ctx, "owner-b"))
	})

	t.Run("GarbageValueOverwritten", func(t *testing.T) {
		require.NoError(t, s.Set(models.DefaultLockKey, "not json"))

		ok, err := locker.Acquire(ctx, "owner-a")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, locker.Release(ctx, "owner-a"))
	})

	t.Run("ReleaseMissingKey", func(t *testing.T) {
		assert.NoError(t, locker.Release(ctx, "owner-a"))
	})

	t.Run("MutualExclusion", func(t *testing.T) {
		var winners atomic.Int32
		var wg sync.WaitGroup
		for _, owner := range []string{"p1", "p2", "p3", "p4", "p5"} {
			wg.Add(1)
			go func(owner string) {
				defer wg.Done()
				ok, err := locker.Acquire(ctx, owner)
				if err == nil && ok {
					winners.Add(1)
				}
			}(owner)
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners.Load())
		s.Del(models.DefaultLockKey)
	})

	t.Run("StorageDown", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")

		_, err := locker.Acquire(ctx, "owner-a")
		assert.Error(t, err)
		assert.Error(t, locker.Release(ctx, "owner-a"))
	})

	t.Run("NilClient", func(t *testing.T) {
		l := NewRedisLocker(nil, "k", time.Second, clock)
		_, err := l.Acquire(ctx, "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestMemoryLocker(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLocker(time.Minute, clock)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", l.Holder())

	ok, _ = l.Acquire(ctx, "a")
	assert.True(t, ok, "same owner re-enters")

	ok, _ = l.Acquire(ctx, "b")
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "b"))
	assert.Equal(t, "a", l.Holder())

	clock.Advance(61 * time.Second)
	assert.Equal(t, "", l.Holder())
	ok, _ = l.Acquire(ctx, "b")
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "b"))
	assert.Equal(t, "", l.Holder())
}

func TestNewRedisClient(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	assert.NoError(t, Ping(context.Background(), client))
	assert.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
	assert.Error(t, Ping(context.Background(), nil))
}

var _ domain.Locker = (*RedisLocker)(nil)
var _ domain.Locker = (*MemoryLocker)(nil)
var _ domain.Locker = (*FailoverLocker)(nil)
