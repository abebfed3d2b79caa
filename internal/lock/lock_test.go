package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()

	locker := NewRedisLocker(client, "space:")
	locker.newToken = func() string { return "token-1" }

	t.Run("acquire and release", func(t *testing.T) {
		mock.ExpectSetNX("space:listing:l1", "token-1", 5*time.Second).SetVal(true)
		mock.ExpectEval(releaseScript, []string{"space:listing:l1"}, "token-1").SetVal(int64(1))

		release, ok, err := locker.TryAcquire(ctx, "listing:l1", 5*time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NoError(t, release(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("held by someone else", func(t *testing.T) {
		mock.ExpectSetNX("space:listing:l1", "token-1", 5*time.Second).SetVal(false)

		release, ok, err := locker.TryAcquire(ctx, "listing:l1", 5*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, release)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		mock.ExpectSetNX("space:scheduler", "token-1", time.Minute).SetErr(errors.New("connection refused"))

		_, ok, err := locker.TryAcquire(ctx, "scheduler", time.Minute)
		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }

	release, ok, err := locker.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = locker.TryAcquire(ctx, "k", time.Second)
	assert.False(t, ok, "held lease blocks")

	_, ok, _ = locker.TryAcquire(ctx, "other", time.Second)
	assert.True(t, ok, "keys are independent")

	now = now.Add(2 * time.Second)
	release2, ok, _ := locker.TryAcquire(ctx, "k", time.Second)
	assert.True(t, ok, "expired lease can be taken over")

	// The stale release must not drop the new holder's lease.
	require.NoError(t, release(ctx))
	_, ok, _ = locker.TryAcquire(ctx, "k", time.Second)
	assert.False(t, ok)

	require.NoError(t, release2(ctx))
	_, ok, _ = locker.TryAcquire(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	t.Run("waits for the holder", func(t *testing.T) {
		release, err := Acquire(ctx, locker, "k", time.Second, time.Second)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = release(ctx)
		}()

		release2, err := Acquire(ctx, locker, "k", time.Second, time.Second)
		require.NoError(t, err)
		require.NoError(t, release2(ctx))
	})

	t.Run("gives up after wait", func(t *testing.T) {
		_, err := Acquire(ctx, locker, "busy", time.Minute, 0)
		require.NoError(t, err)

		_, err = Acquire(ctx, locker, "busy", time.Minute, 60*time.Millisecond)
		assert.ErrorIs(t, err, ErrBusy)
	})

	t.Run("mutual exclusion", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			inside  atomic.Int32
			overlap atomic.Bool
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := Acquire(ctx, locker, "mutex", time.Second, 5*time.Second)
				if err != nil {
					return
				}
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				_ = release(ctx)
			}()
		}
		wg.Wait()
		assert.False(t, overlap.Load())
	})
}
