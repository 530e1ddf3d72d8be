package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(2, time.Minute)

	_, err := store.Get(ctx, "orders:B1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Set(ctx, "orders:B1", []byte("one"), 0))
	got, err := store.Get(ctx, "orders:B1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, store.Set(ctx, "orders:B2", []byte("two"), 0))
	require.NoError(t, store.Set(ctx, "orders:B3", []byte("three"), 0))
	_, err = store.Get(ctx, "orders:B1")
	assert.ErrorIs(t, err, ErrCacheMiss, "least recently used entry is evicted")

	require.NoError(t, store.Delete(ctx, "orders:B3"))
	_, err = store.Get(ctx, "orders:B3")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, store.Set(ctx, "", []byte("x"), 0))
}

func TestMemoryStoreCopiesValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(4, time.Minute)

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := Noop()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestNewStoreSelectsDriver(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	logger := zap.NewNop()

	store, err := NewStore(lc, config.Config{Cache: config.Cache{Driver: "memory", MemorySize: 8, DefaultTTL: time.Minute}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memoryStore{}, store)

	store, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "noop"}}, logger)
	require.NoError(t, err)
	assert.IsType(t, noopStore{}, store)

	_, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "memcached"}}, logger)
	assert.Error(t, err)
}
