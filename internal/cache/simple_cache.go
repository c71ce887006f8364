package cache

import (
	"context"
	"sync"
)

// MemoryStorage is the reference Storage: a session-scoped map from tag to
// value. Contents are lost when the process exits.
type MemoryStorage[T any] struct {
	// If muPtr is nil, the storage is NOT goroutine-safe.
	// If muPtr is non-nil, it guards all operations.
	muPtr *sync.RWMutex

	items map[string]T
}

// Options controls construction of a MemoryStorage.
type Options struct {
	// ConcurrencySafe controls whether operations are guarded by a RWMutex.
	// Leave it off only when a single goroutine owns the storage.
	ConcurrencySafe bool
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage[T any](opts Options) *MemoryStorage[T] {
	var mu *sync.RWMutex
	if opts.ConcurrencySafe {
		mu = &sync.RWMutex{}
	}
	return &MemoryStorage[T]{
		muPtr: mu,
		items: make(map[string]T),
	}
}

func (s *MemoryStorage[T]) lockR() func() {
	if s.muPtr == nil {
		return func() {}
	}
	s.muPtr.RLock()
	return s.muPtr.RUnlock
}

func (s *MemoryStorage[T]) lockW() func() {
	if s.muPtr == nil {
		return func() {}
	}
	s.muPtr.Lock()
	return s.muPtr.Unlock
}

// Exists implements Storage.Exists.
func (s *MemoryStorage[T]) Exists(_ context.Context, tag string) (bool, error) {
	unlock := s.lockR()
	defer unlock()
	_, ok := s.items[tag]
	return ok, nil
}

// Retrieve implements Storage.Retrieve.
func (s *MemoryStorage[T]) Retrieve(_ context.Context, tag string) (T, error) {
	unlock := s.lockR()
	defer unlock()
	v, ok := s.items[tag]
	if !ok {
		var zero T
		return zero, ErrCacheMiss
	}
	return v, nil
}

// Store implements Storage.Store.
func (s *MemoryStorage[T]) Store(_ context.Context, tag string, value T) error {
	unlock := s.lockW()
	defer unlock()
	s.items[tag] = value
	return nil
}

// Remove implements Storage.Remove.
func (s *MemoryStorage[T]) Remove(_ context.Context, tag string) error {
	unlock := s.lockW()
	defer unlock()
	delete(s.items, tag)
	return nil
}

// Clear implements Storage.Clear.
func (s *MemoryStorage[T]) Clear(_ context.Context) error {
	unlock := s.lockW()
	defer unlock()
	s.items = make(map[string]T)
	return nil
}

// Len returns the number of stored values.
func (s *MemoryStorage[T]) Len() int {
	unlock := s.lockR()
	defer unlock()
	return len(s.items)
}

// Ensure MemoryStorage implements Storage at compile time.
var _ Storage[any] = (*MemoryStorage[any])(nil)
