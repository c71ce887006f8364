package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss is returned by Retrieve when no fresh value is stored for a tag.
	ErrCacheMiss = errors.New("cache miss")

	// ErrEmptyTag rejects entries without a tag.
	ErrEmptyTag = errors.New("cache tag must not be empty")

	// ErrNilProducer is returned by GetOrFetch when no producer was supplied.
	ErrNilProducer = errors.New("producer is required")
)

// Storage is the persistence contract behind a Coordinator, keyed by tag.
// Storage is agnostic to TTLs: expiry is enforced by the Coordinator.
type Storage[T any] interface {
	// Exists reports whether a value is stored for tag.
	Exists(ctx context.Context, tag string) (bool, error)

	// Retrieve returns the stored value, or ErrCacheMiss when there is none.
	Retrieve(ctx context.Context, tag string) (T, error)

	// Store upserts the value for tag.
	Store(ctx context.Context, tag string, value T) error

	// Remove deletes tag if present.
	Remove(ctx context.Context, tag string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// Producer computes the value to cache, e.g. a network fetch.
type Producer[T any] func(ctx context.Context) (T, error)
