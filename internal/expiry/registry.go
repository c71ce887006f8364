package expiry

import (
	"sync"
	"time"

	"cache-countdown-api/internal/clock"

	"github.com/samber/mo"
)

// Entry is what the registry needs to know about a cache entry.
type Entry interface {
	Tag() string
	ValidFor() mo.Option[time.Duration]
}

// Registry keeps at most one running Timer per tag.
type Registry struct {
	clk  clock.Clock
	opts []Option

	mu     sync.Mutex
	timers map[string]*Timer
}

// NewRegistry creates an empty registry whose timers use clk and opts. A nil
// clk means the real clock.
func NewRegistry(clk clock.Clock, opts ...Option) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{
		clk:    clk,
		opts:   opts,
		timers: make(map[string]*Timer),
	}
}

// Add starts a timer for entry unless the entry never expires or a timer for
// its tag is already registered; the first registration wins. onExpire runs
// after the timer has removed itself from the registry. Add reports whether a
// timer was started.
func (r *Registry) Add(entry Entry, onExpire func()) bool {
	d, ok := entry.ValidFor().Get()
	if !ok {
		return false
	}
	tag := entry.Tag()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.timers[tag]; exists {
		return false
	}

	var t *Timer
	t = newTimer(r.clk, d, func() {
		r.removeIf(tag, t)
		if onExpire != nil {
			onExpire()
		}
	}, r.opts...)
	r.timers[tag] = t
	t.run()
	return true
}

// Remove cancels and forgets the timer for tag.
func (r *Registry) Remove(tag string) bool {
	r.mu.Lock()
	t, ok := r.timers[tag]
	delete(r.timers, tag)
	r.mu.Unlock()

	if !ok {
		return false
	}
	t.Cancel()
	return true
}

// Clear cancels and forgets every timer.
func (r *Registry) Clear() {
	r.mu.Lock()
	timers := r.timers
	r.timers = make(map[string]*Timer)
	r.mu.Unlock()

	for _, t := range timers {
		t.Cancel()
	}
}

// Lookup returns the running timer for tag, if any.
func (r *Registry) Lookup(tag string) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[tag]
	return t, ok
}

// TimeLeft returns the remaining countdown for tag, or None when no timer is
// registered.
func (r *Registry) TimeLeft(tag string) mo.Option[time.Duration] {
	t, ok := r.Lookup(tag)
	if !ok {
		return mo.None[time.Duration]()
	}
	return mo.Some(t.Remaining())
}

// Len returns the number of registered timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// removeIf deletes tag only while it still maps to t, so a timer that fires
// late cannot drop its replacement.
func (r *Registry) removeIf(tag string, t *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.timers[tag]; ok && cur == t {
		delete(r.timers, tag)
	}
}
