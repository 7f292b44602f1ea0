package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailoverStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()

	logger := zerolog.Nop()
	fallback := NewMemoryStore()
	repo := NewFailoverStore(NewRedisStore(client), fallback, &logger)
	now := time.Now()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "k1", []byte("primary"), time.Hour))
	assert.True(t, s.Exists(idempotencyPrefix+"k1"))

	s.SetError("server down")
	require.NoError(t, repo.Put(ctx, "k2", []byte("fallback"), time.Hour))
	assert.True(t, repo.isDown.Load())

	got, ok, err := fallback.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fallback", string(got))

	// still inside the recovery interval: primary is not tried
	s.SetError("")
	got, ok, err = repo.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fallback", string(got))
	assert.True(t, repo.isDown.Load())

	now = now.Add(2 * recoveryInterval)
	got, ok, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "primary", string(got))
	assert.False(t, repo.isDown.Load())
}

func TestFailoverStoreClaim(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()

	logger := zerolog.Nop()
	fallback := NewMemoryStore()
	repo := NewFailoverStore(NewRedisStore(client), fallback, &logger)
	ctx := context.Background()

	ok, err := repo.Claim(ctx, "k1", []byte("pending"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.Exists(idempotencyPrefix+"k1"))

	ok, err = repo.Claim(ctx, "k1", []byte("pending"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	s.SetError("server down")
	ok, err = repo.Claim(ctx, "k2", []byte("pending"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	_, inFallback, err := fallback.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, inFallback)

	require.NoError(t, repo.Delete(ctx, "k2"))
	_, inFallback, err = fallback.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, inFallback)
}
