package clock

import (
	"sync"
	"time"
)

// Fake is a virtual clock for deterministic tests. Time only moves on Advance.
//
// Like time.Ticker, each fake ticker buffers a single tick and drops the rest
// when its reader falls behind.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*fakeTicker]struct{}
}

type fakeTicker struct {
	clock  *Fake
	c      chan time.Time
	period time.Duration
	next   time.Time
}

// NewFake returns a virtual clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:     start,
		tickers: make(map[*fakeTicker]struct{}),
	}
}

// Now implements Clock.Now.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker implements Clock.NewTicker.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		clock:  f,
		c:      make(chan time.Time, 1),
		period: d,
		next:   f.now.Add(d),
	}
	f.tickers[t] = struct{}{}
	return t
}

// Advance moves the clock forward by d, delivering every tick that falls
// inside the window in time order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		t := f.earliestLocked()
		if t == nil || t.next.After(target) {
			break
		}
		f.now = t.next
		select {
		case t.c <- t.next:
		default:
		}
		t.next = t.next.Add(t.period)
	}
	f.now = target
}

// Tickers reports how many tickers are active. Tests use it to check that
// stopped timers release their clock subscription.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

func (f *Fake) earliestLocked() *fakeTicker {
	var first *fakeTicker
	for t := range f.tickers {
		if first == nil || t.next.Before(first.next) {
			first = t
		}
	}
	return first
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	delete(t.clock.tickers, t)
}
