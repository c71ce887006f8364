package cache

import (
	"context"

	"github.com/jellydator/ttlcache/v3"
)

// TTLCacheStorage is a session-scoped Storage backed by ttlcache. Values are
// stored without a ttlcache TTL since the Coordinator owns expiry; a capacity
// bound turns overflow into misses.
type TTLCacheStorage[T any] struct {
	c *ttlcache.Cache[string, T]
}

// NewTTLCacheStorage creates the storage. A zero capacity means unbounded.
func NewTTLCacheStorage[T any](capacity uint64) *TTLCacheStorage[T] {
	opts := []ttlcache.Option[string, T]{
		ttlcache.WithTTL[string, T](ttlcache.NoTTL),
		ttlcache.WithDisableTouchOnHit[string, T](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, T](capacity))
	}
	return &TTLCacheStorage[T]{c: ttlcache.New[string, T](opts...)}
}

// Exists implements Storage.Exists.
func (s *TTLCacheStorage[T]) Exists(_ context.Context, tag string) (bool, error) {
	return s.c.Has(tag), nil
}

// Retrieve implements Storage.Retrieve.
func (s *TTLCacheStorage[T]) Retrieve(_ context.Context, tag string) (T, error) {
	item := s.c.Get(tag)
	if item == nil {
		var zero T
		return zero, ErrCacheMiss
	}
	return item.Value(), nil
}

// Store implements Storage.Store.
func (s *TTLCacheStorage[T]) Store(_ context.Context, tag string, value T) error {
	s.c.Set(tag, value, ttlcache.NoTTL)
	return nil
}

// Remove implements Storage.Remove.
func (s *TTLCacheStorage[T]) Remove(_ context.Context, tag string) error {
	s.c.Delete(tag)
	return nil
}

// Clear implements Storage.Clear.
func (s *TTLCacheStorage[T]) Clear(_ context.Context) error {
	s.c.DeleteAll()
	return nil
}

// Len returns the number of stored values.
func (s *TTLCacheStorage[T]) Len() int {
	return s.c.Len()
}

var _ Storage[any] = (*TTLCacheStorage[any])(nil)
