package cache

import (
	"time"

	"cache-countdown-api/internal/clock"
	"cache-countdown-api/internal/expiry"

	"go.uber.org/zap"
)

// EvictReason says why a tag left the cache.
type EvictReason string

const (
	EvictExpired EvictReason = "expired"
	EvictRemoved EvictReason = "removed"
	EvictCleared EvictReason = "cleared"
)

// EvictionListener is notified after a tag has been evicted. For
// EvictCleared the tag is empty. Listeners run on the evicting goroutine and
// must not call back into the Coordinator.
type EvictionListener func(tag string, reason EvictReason)

// Option configures a Coordinator.
type Option func(*config)

type config struct {
	clk          clock.Clock
	registry     *expiry.Registry
	tickInterval time.Duration
	logger       *zap.Logger
	metrics      Metrics
	listener     EvictionListener
	dedup        bool
}

// WithClock sets the clock used for entries and timers.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clk = clk }
}

// WithRegistry hands the coordinator an existing timer registry. The registry
// should not be shared with another coordinator.
func WithRegistry(r *expiry.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithTickInterval sets the countdown cadence of timers created by the
// coordinator's own registry. Ignored together with WithRegistry.
func WithTickInterval(d time.Duration) Option {
	return func(c *config) { c.tickInterval = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics sets the metrics sink. Defaults to NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithEvictionListener registers fn to observe evictions.
func WithEvictionListener(fn EvictionListener) Option {
	return func(c *config) { c.listener = fn }
}

// WithInFlightDedup collapses concurrent GetOrFetch misses for the same tag
// into one producer call. Off by default: without it every concurrent miss
// runs the producer and the last store wins.
func WithInFlightDedup() Option {
	return func(c *config) { c.dedup = true }
}
