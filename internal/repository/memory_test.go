package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	repo.now = func() time.Time { return now }

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "k1", []byte(`{"id":"b1"}`), time.Hour))

		got, ok, err := repo.Get(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"id":"b1"}`, string(got))

		_, ok, err = repo.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "k2", []byte("v"), time.Minute))
		now = now.Add(2 * time.Minute)

		_, ok, err := repo.Get(ctx, "k2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Claim", func(t *testing.T) {
		ok, err := repo.Claim(ctx, "c1", []byte("pending"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Claim(ctx, "c1", []byte("pending"), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.Delete(ctx, "c1"))
		ok, err = repo.Claim(ctx, "c1", []byte("again"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		now = now.Add(2 * time.Minute)
		ok, err = repo.Claim(ctx, "c1", []byte("after expiry"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		got, _, err := repo.Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "after expiry", string(got))
	})

	t.Run("ConcurrentClaim", func(t *testing.T) {
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			claims int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Claim(ctx, "c2", []byte("pending"), time.Minute)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					claims++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, claims)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "login:1.2.3.4"
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, key, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		now = now.Add(2 * time.Minute)
		allowed, err = repo.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
