package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"cache-countdown-api/internal/clock"
	"cache-countdown-api/internal/expiry"

	"github.com/samber/mo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tracerName = "cache-countdown-api/internal/cache"

/*
Coordinator memoizes producer results in a Storage and evicts them when their
entry's lifetime ends.

Expiry is tracked twice: a per-tag expiry.Timer evicts in the background and
drives the remaining-time stream, while every read re-checks the entry's
deadline because the timer can lag by up to one tick.
*/
type Coordinator[T any] struct {
	storage  Storage[T]
	registry *expiry.Registry
	clk      clock.Clock
	logger   *zap.Logger
	metrics  Metrics
	listener EvictionListener
	tracer   trace.Tracer

	dedup bool
	sf    singleflight.Group

	// mu serializes storage mutations with the entry records so that lazy
	// eviction, timer eviction and ClearAll never interleave.
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewCoordinator wires storage to a timer registry owned by the coordinator.
func NewCoordinator[T any](storage Storage[T], opts ...Option) *Coordinator[T] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clk == nil {
		cfg.clk = clock.Real()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.metrics == nil {
		cfg.metrics = NoopMetrics{}
	}
	if cfg.registry == nil {
		var timerOpts []expiry.Option
		if cfg.tickInterval > 0 {
			timerOpts = append(timerOpts, expiry.WithInterval(cfg.tickInterval))
		}
		cfg.registry = expiry.NewRegistry(cfg.clk, timerOpts...)
	}

	return &Coordinator[T]{
		storage:  storage,
		registry: cfg.registry,
		clk:      cfg.clk,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		listener: cfg.listener,
		tracer:   otel.Tracer(tracerName),
		dedup:    cfg.dedup,
		entries:  make(map[string]*Entry),
	}
}

/*
GetOrFetch returns the cached value for entry or runs producer to obtain it.

  - entry == nil: caching is off, producer runs on every call.
  - entry has a lifetime and a fresh value is stored: the stored value is
    returned without running producer.
  - otherwise producer runs. Its error is returned as is and nothing is
    cached. A nil result is returned without being cached.
*/
func (c *Coordinator[T]) GetOrFetch(ctx context.Context, entry *Entry, producer Producer[T]) (T, error) {
	v, _, err := c.Fetch(ctx, entry, producer)
	return v, err
}

// Fetch is GetOrFetch that also reports whether the value was served from
// storage without a producer call.
func (c *Coordinator[T]) Fetch(ctx context.Context, entry *Entry, producer Producer[T]) (T, bool, error) {
	var zero T
	if producer == nil {
		return zero, false, ErrNilProducer
	}
	if entry == nil {
		v, err := producer(ctx)
		return v, false, err
	}
	tag := entry.Tag()
	if tag == "" {
		return zero, false, ErrEmptyTag
	}

	ctx, span := c.tracer.Start(ctx, "cache.GetOrFetch",
		trace.WithAttributes(attribute.String("cache.tag", tag)))
	defer span.End()

	if entry.ValidFor().IsPresent() {
		v, ok, err := c.lookup(ctx, tag)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return zero, false, err
		}
		if ok {
			c.metrics.Hit()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return v, true, nil
		}
	}
	c.metrics.Miss()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err := c.produce(ctx, tag, producer)
	if err != nil {
		c.metrics.ProducerFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("producer failed", zap.String("tag", tag), zap.Error(err))
		return zero, false, err
	}
	if isNil(v) {
		c.logger.Debug("producer returned nil; nothing cached", zap.String("tag", tag))
		return v, false, nil
	}

	if err := c.Store(ctx, entry, v); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, false, err
	}
	return v, false, nil
}

// Store writes value under entry's tag as a new logical entry stamped now.
// Any timer for the tag is replaced; a new one starts when the entry has a
// lifetime.
func (c *Coordinator[T]) Store(ctx context.Context, entry *Entry, value T) error {
	if entry == nil || entry.Tag() == "" {
		return ErrEmptyTag
	}
	tag := entry.Tag()
	rec := entry.renew(c.clk)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.Store(ctx, tag, value); err != nil {
		return fmt.Errorf("store %q: %w", tag, err)
	}
	c.entries[tag] = rec
	c.registry.Remove(tag)
	if c.registry.Add(rec, func() { c.expire(tag, rec) }) {
		d, _ := rec.ValidFor().Get()
		c.logger.Debug("expiry timer started", zap.String("tag", tag), zap.Duration("valid_for", d))
	}
	return nil
}

// Exists reports whether a fresh value is stored for tag. An entry whose
// lifetime has elapsed is evicted on the spot even if its timer has not fired.
func (c *Coordinator[T]) Exists(ctx context.Context, tag string) (bool, error) {
	c.mu.Lock()
	ok, expired, err := c.existsLocked(ctx, tag)
	c.mu.Unlock()

	if expired {
		c.onLazyExpire(tag)
	}
	return ok, err
}

// Retrieve returns the fresh value for tag or ErrCacheMiss.
func (c *Coordinator[T]) Retrieve(ctx context.Context, tag string) (T, error) {
	v, ok, err := c.lookup(ctx, tag)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrCacheMiss
	}
	return v, nil
}

// Remove evicts tag and cancels its timer.
// Listeners are only notified when something was stored for tag.
func (c *Coordinator[T]) Remove(ctx context.Context, tag string) error {
	c.mu.Lock()
	stored, err := c.storage.Exists(ctx, tag)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("remove %q: %w", tag, err)
	}
	if err := c.storage.Remove(ctx, tag); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("remove %q: %w", tag, err)
	}
	hadTimer := c.registry.Remove(tag)
	_, tracked := c.entries[tag]
	delete(c.entries, tag)
	c.mu.Unlock()

	if stored || hadTimer || tracked {
		c.notify(tag, EvictRemoved)
	}
	return nil
}

// ClearAll empties storage and cancels every timer. Either everything is
// cleared or, when storage fails, nothing is.
func (c *Coordinator[T]) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	if err := c.storage.Clear(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("clear storage: %w", err)
	}
	c.registry.Clear()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	c.logger.Debug("cache cleared")
	c.notify("", EvictCleared)
	return nil
}

// RemainingTime streams the countdown of tag's timer. The channel is closed
// right away when no timer is running for tag.
func (c *Coordinator[T]) RemainingTime(ctx context.Context, tag string) <-chan time.Duration {
	t, ok := c.registry.Lookup(tag)
	if !ok {
		ch := make(chan time.Duration)
		close(ch)
		return ch
	}
	return t.Subscribe(ctx)
}

// TimeLeft returns tag's remaining lifetime as of the last tick, or None when
// no timer is running.
func (c *Coordinator[T]) TimeLeft(tag string) mo.Option[time.Duration] {
	return c.registry.TimeLeft(tag)
}

func (c *Coordinator[T]) lookup(ctx context.Context, tag string) (T, bool, error) {
	var zero T

	c.mu.Lock()
	ok, expired, err := c.existsLocked(ctx, tag)
	if err != nil || !ok {
		c.mu.Unlock()
		if expired {
			c.onLazyExpire(tag)
		}
		return zero, false, err
	}
	v, err := c.storage.Retrieve(ctx, tag)
	c.mu.Unlock()

	if errors.Is(err, ErrCacheMiss) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("retrieve %q: %w", tag, err)
	}
	return v, true, nil
}

// existsLocked reports presence after applying the lazy expiry check.
// expired is true when this call evicted tag.
func (c *Coordinator[T]) existsLocked(ctx context.Context, tag string) (ok, expired bool, err error) {
	if rec, tracked := c.entries[tag]; tracked && rec.ShouldExpire() {
		if err := c.storage.Remove(ctx, tag); err != nil {
			return false, false, fmt.Errorf("evict %q: %w", tag, err)
		}
		c.registry.Remove(tag)
		delete(c.entries, tag)
		return false, true, nil
	}

	ok, err = c.storage.Exists(ctx, tag)
	if err != nil {
		return false, false, fmt.Errorf("exists %q: %w", tag, err)
	}
	return ok, false, nil
}

// expire is the timer callback. It only evicts while rec is still the
// current record for tag.
func (c *Coordinator[T]) expire(tag string, rec *Entry) {
	c.mu.Lock()
	if c.entries[tag] != rec {
		c.mu.Unlock()
		return
	}
	err := c.storage.Remove(context.Background(), tag)
	if err == nil {
		delete(c.entries, tag)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("evict expired entry", zap.String("tag", tag), zap.Error(err))
		return
	}
	c.metrics.Expire()
	c.logger.Debug("entry expired", zap.String("tag", tag))
	c.notify(tag, EvictExpired)
}

func (c *Coordinator[T]) onLazyExpire(tag string) {
	c.metrics.Expire()
	c.logger.Debug("entry expired on access", zap.String("tag", tag))
	c.notify(tag, EvictExpired)
}

// produce runs producer, or joins the in-flight call for tag when dedup is
// on. A shared call runs detached from any one caller's cancellation, and each
// caller stops waiting when its own ctx is done.
func (c *Coordinator[T]) produce(ctx context.Context, tag string, producer Producer[T]) (T, error) {
	var zero T
	if !c.dedup {
		return producer(ctx)
	}
	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(tag, func() (any, error) {
		return producer(shared)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("producer result shared", zap.String("tag", tag))
		}
		if res.Err != nil {
			return zero, res.Err
		}
		out, _ := res.Val.(T)
		return out, nil
	}
}

func (c *Coordinator[T]) notify(tag string, reason EvictReason) {
	if c.listener != nil {
		c.listener(tag, reason)
	}
}

// isNil reports whether v is a nil pointer, map, slice, interface, channel
// or func.
func isNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
