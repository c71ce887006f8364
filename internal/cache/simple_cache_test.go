package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_StoreRetrieve(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage[int](Options{ConcurrencySafe: false})

	require.NoError(t, s.Store(ctx, "a", 1))
	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	v, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, s.Store(ctx, "a", 2))
	v, _ = s.Retrieve(ctx, "a")
	require.Equal(t, 2, v, "store should overwrite")
	require.Equal(t, 1, s.Len())
}

func TestMemoryStorage_RetrieveMissFailsLoudly(t *testing.T) {
	s := NewMemoryStorage[string](Options{})

	v, err := s.Retrieve(context.Background(), "missing")
	require.ErrorIs(t, err, ErrCacheMiss)
	require.Empty(t, v)
}

func TestMemoryStorage_RemoveClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage[int](Options{ConcurrencySafe: true})
	require.NoError(t, s.Store(ctx, "a", 1))
	require.NoError(t, s.Store(ctx, "b", 2))

	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Remove(ctx, "a"), "removing an absent tag is a no-op")
	ok, _ := s.Exists(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Clear(ctx))
	require.Zero(t, s.Len())
}

func TestMemoryStorage_ConcurrencySafe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage[int](Options{ConcurrencySafe: true})

	tags := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, tag := range tags {
		tag := tag
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 200; r++ {
				_ = s.Store(ctx, tag, r)
				_, _ = s.Retrieve(ctx, tag)
			}
		}()
	}
	wg.Wait()

	for _, tag := range tags {
		v, err := s.Retrieve(ctx, tag)
		require.NoError(t, err)
		require.Equal(t, 199, v)
	}
}

func TestTTLCacheStorage_Contract(t *testing.T) {
	ctx := context.Background()
	s := NewTTLCacheStorage[string](0)

	_, err := s.Retrieve(ctx, "a")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Store(ctx, "a", "alpha"))
	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	v, err := s.Retrieve(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "alpha", v)

	require.NoError(t, s.Remove(ctx, "a"))
	ok, _ = s.Exists(ctx, "a")
	require.False(t, ok)

	require.NoError(t, s.Store(ctx, "b", "beta"))
	require.NoError(t, s.Clear(ctx))
	require.Zero(t, s.Len())
}

func TestTTLCacheStorage_CapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewTTLCacheStorage[int](2)

	require.NoError(t, s.Store(ctx, "a", 1))
	require.NoError(t, s.Store(ctx, "b", 2))
	require.NoError(t, s.Store(ctx, "c", 3))

	require.Equal(t, 2, s.Len())
	ok, _ := s.Exists(ctx, "a")
	require.False(t, ok)
}
