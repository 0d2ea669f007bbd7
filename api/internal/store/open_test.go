package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cf-hints/api/internal/config"
	"cf-hints/api/internal/hints"
)

func TestOpen_File(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	b, err := Open(ctx, &config.Config{CacheBackend: config.BackendFile}, fs, nil, nil)
	require.NoError(t, err)
	assert.Same(t, fs, b.HintStore.(*FileStore))
	assert.NoError(t, b.Check(ctx))
	assert.NoError(t, b.Close())

	b, err = Open(ctx, &config.Config{CacheBackend: config.BackendFile, CacheLRUSize: 4}, fs, nil, nil)
	require.NoError(t, err)
	_, ok := b.HintStore.(*CachedStore)
	assert.True(t, ok)

	require.NoError(t, b.Write(ctx, "1900A", hints.HintSet{"x"}))
	got, err := fs.Read(ctx, "1900A")
	require.NoError(t, err)
	assert.Equal(t, hints.HintSet{"x"}, got)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, &config.Config{CacheBackend: "memcached"}, nil, nil, nil)
	assert.ErrorContains(t, err, "unknown cache backend")

	_, err = Open(ctx, &config.Config{CacheBackend: config.BackendFile}, nil, nil, nil)
	assert.Error(t, err)
}
