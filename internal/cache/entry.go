package cache

import (
	"time"

	"cache-countdown-api/internal/clock"

	"github.com/samber/mo"
)

// Entry describes one cached call site: its tag and an optional lifetime.
// Entries are immutable; CreatedAt is stamped once at construction.
type Entry struct {
	tag       string
	validFor  mo.Option[time.Duration]
	createdAt time.Time
	clk       clock.Clock
}

// NewEntry creates an entry stamped with the current time. mo.None for
// validFor means the entry never expires.
func NewEntry(tag string, validFor mo.Option[time.Duration]) *Entry {
	return NewEntryWithClock(clock.Real(), tag, validFor)
}

// NewEntryWithClock is NewEntry against an explicit clock.
func NewEntryWithClock(clk clock.Clock, tag string, validFor mo.Option[time.Duration]) *Entry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Entry{
		tag:       tag,
		validFor:  validFor,
		createdAt: clk.Now(),
		clk:       clk,
	}
}

// ExpiresIn is shorthand for an entry valid for d.
func ExpiresIn(tag string, d time.Duration) *Entry {
	return NewEntry(tag, mo.Some(d))
}

// Forever is shorthand for an entry that never expires.
func Forever(tag string) *Entry {
	return NewEntry(tag, mo.None[time.Duration]())
}

func (e *Entry) Tag() string { return e.tag }

func (e *Entry) ValidFor() mo.Option[time.Duration] { return e.validFor }

func (e *Entry) CreatedAt() time.Time { return e.createdAt }

// ShouldExpire reports whether the entry's lifetime has elapsed. It is
// recomputed against the clock on every call.
func (e *Entry) ShouldExpire() bool {
	d, ok := e.validFor.Get()
	if !ok {
		return false
	}
	return !e.clk.Now().Before(e.createdAt.Add(d))
}

// renew returns a copy of e stamped with clk's current time.
func (e *Entry) renew(clk clock.Clock) *Entry {
	return NewEntryWithClock(clk, e.tag, e.validFor)
}
