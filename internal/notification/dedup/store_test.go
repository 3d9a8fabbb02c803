package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hiring-notifier/internal/common/errors"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store, advance func(time.Duration)) {
	ctx := context.Background()
	ttl := 10 * time.Minute

	t.Run("first reserve wins", func(t *testing.T) {
		reserved, prior, err := store.Reserve(ctx, "k1", ttl)
		require.NoError(t, err)
		assert.True(t, reserved)
		assert.Nil(t, prior)
	})

	t.Run("second reserve sees in-flight", func(t *testing.T) {
		reserved, prior, err := store.Reserve(ctx, "k1", ttl)
		require.NoError(t, err)
		assert.False(t, reserved)
		assert.Nil(t, prior)
	})

	t.Run("completed value is returned", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "k1", []byte(`{"status":"delivered"}`), ttl))

		reserved, prior, err := store.Reserve(ctx, "k1", ttl)
		require.NoError(t, err)
		assert.False(t, reserved)
		assert.JSONEq(t, `{"status":"delivered"}`, string(prior))
	})

	t.Run("release allows a new reservation", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, "k1"))

		reserved, _, err := store.Reserve(ctx, "k1", ttl)
		require.NoError(t, err)
		assert.True(t, reserved)
	})

	t.Run("expiry allows a new reservation", func(t *testing.T) {
		reserved, _, err := store.Reserve(ctx, "k2", time.Minute)
		require.NoError(t, err)
		require.True(t, reserved)

		advance(2 * time.Minute)

		reserved, _, err = store.Reserve(ctx, "k2", time.Minute)
		require.NoError(t, err)
		assert.True(t, reserved)
	})
}

func TestRedisStore_Contract(t *testing.T) {
	store, mr := newRedisStore(t)
	storeContract(t, store, mr.FastForward)
}

func TestMemoryStore_Contract(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	storeContract(t, store, func(d time.Duration) { now = now.Add(d) })
}

func TestRedisStore_UsesPrefixedKeys(t *testing.T) {
	store, mr := newRedisStore(t)

	_, _, err := store.Reserve(context.Background(), "42:ana@x.io:submitted", time.Minute)
	require.NoError(t, err)

	val, err := mr.Get("notify:dedup:42:ana@x.io:submitted")
	require.NoError(t, err)
	assert.Equal(t, "pending", val)
	assert.Equal(t, time.Minute, mr.TTL("notify:dedup:42:ana@x.io:submitted"))
}

func TestRedisStore_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectSetNX("notify:dedup:k", "pending", time.Minute).SetErr(errors.New("connection refused"))
	_, _, err := store.Reserve(ctx, "k", time.Minute)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDedupUnavailable))

	mock.ExpectSetNX("notify:dedup:k", "pending", time.Minute).SetVal(false)
	mock.ExpectGet("notify:dedup:k").SetErr(errors.New("i/o timeout"))
	_, _, err = store.Reserve(ctx, "k", time.Minute)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDedupUnavailable))

	mock.ExpectSetNX("notify:dedup:k", "pending", time.Minute).SetVal(false)
	mock.ExpectGet("notify:dedup:k").RedisNil()
	reserved, prior, err := store.Reserve(ctx, "k", time.Minute)
	assert.NoError(t, err)
	assert.False(t, reserved)
	assert.Nil(t, prior)

	mock.ExpectDel("notify:dedup:k").SetErr(errors.New("readonly"))
	assert.True(t, apperrors.HasCode(store.Release(ctx, "k"), apperrors.ErrCodeDedupUnavailable))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_ConcurrentReserveHasOneWinner(t *testing.T) {
	store := NewMemoryStore()
	var winners int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reserved, _, err := store.Reserve(context.Background(), "same-key", time.Minute)
			if err == nil && reserved {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestMemoryStore_PurgesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := store.Reserve(context.Background(), key, time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	now = now.Add(time.Hour)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SweepsExpiredEveryNReservations(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < purgeEvery-2; i++ {
		reserved, _, err := store.Reserve(ctx, fmt.Sprintf("k%d", i), time.Minute)
		require.NoError(t, err)
		require.True(t, reserved)
	}
	now = now.Add(2 * time.Minute)

	reserved, _, err := store.Reserve(ctx, "k0", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Len(t, store.entries, purgeEvery-2)

	reserved, _, err = store.Reserve(ctx, "fresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Len(t, store.entries, 2)
}
