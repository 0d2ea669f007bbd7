package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cf-hints/api/internal/hints"
)

// Runs only against a real Redis, e.g. REDIS_ADDR=localhost:6379.
func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), 0)
	defer s.Close()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	id := "test-redis-1900A"
	_ = s.client.Del(ctx, redisKey(id)).Err()
	defer s.client.Del(ctx, redisKey(id))

	_, err := s.Read(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, id, hints.HintSet{"a", "b"}))
	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, hints.HintSet{"a", "b"}, got)

	require.NoError(t, s.Write(ctx, id, hints.HintSet{}))
	got, err = s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, hints.HintSet{}, got)
}

func TestRedisStore_InvalidID(t *testing.T) {
	s := NewRedisStore("127.0.0.1:1", "", 0)
	defer s.Close()
	_, err := s.Read(context.Background(), "a b")
	assert.ErrorIs(t, err, ErrInvalidID)
}
