package expiry

import (
	"context"
	"sync"
	"time"

	"cache-countdown-api/internal/clock"
)

// DefaultInterval is the countdown tick cadence.
const DefaultInterval = time.Second

// State is the lifecycle state of a Timer.
type State int32

const (
	StateRunning State = iota
	StateFired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFired:
		return "fired"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval overrides the tick cadence.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// Timer counts down a fixed duration, publishing the remaining time on every
// tick and calling onExpire exactly once when the duration has elapsed.
//
// Ticks and the expiry callback run on a single goroutine owned by the timer.
type Timer struct {
	clk      clock.Clock
	ticker   clock.Ticker
	interval time.Duration
	duration time.Duration
	start    time.Time
	onExpire func()

	// ctx is the cancellation token for the tick loop and subscriber goroutines.
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     State
	ticks     int
	remaining time.Duration
	subs      map[chan time.Duration]struct{}
}

// NewTimer starts a countdown of d. onExpire may be nil.
func NewTimer(clk clock.Clock, d time.Duration, onExpire func(), opts ...Option) *Timer {
	t := newTimer(clk, d, onExpire, opts...)
	t.run()
	return t
}

func newTimer(clk clock.Clock, d time.Duration, onExpire func(), opts ...Option) *Timer {
	if clk == nil {
		clk = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Timer{
		clk:       clk,
		interval:  DefaultInterval,
		duration:  d,
		onExpire:  onExpire,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		remaining: max(d, 0),
		subs:      make(map[chan time.Duration]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// run stamps the start time, subscribes to the clock and launches the tick loop.
func (t *Timer) run() {
	t.start = t.clk.Now()
	t.ticker = t.clk.NewTicker(t.interval)
	go t.loop()
}

func (t *Timer) loop() {
	defer close(t.done)
	defer t.ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.ticker.C():
			if t.tick() {
				return
			}
		}
	}
}

// tick recomputes the remaining time and reports whether the loop should stop.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return true
	}
	t.ticks++
	remaining := t.duration - t.clk.Now().Sub(t.start)
	if remaining > 0 {
		t.remaining = remaining
		t.publishLocked(remaining)
		t.mu.Unlock()
		return false
	}

	t.remaining = 0
	t.state = StateFired
	t.publishLocked(0)
	t.closeSubsLocked()
	t.mu.Unlock()

	t.cancel()
	if t.onExpire != nil {
		t.onExpire()
	}
	return true
}

// Cancel stops the countdown without calling onExpire. It reports whether the
// timer was still running. In-flight ticks that already decided to fire are
// not interrupted.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return false
	}
	t.state = StateCancelled
	t.closeSubsLocked()
	t.mu.Unlock()

	t.cancel()
	return true
}

// Subscribe returns a channel of remaining durations. The current value is
// delivered first, then one value per tick. A slow reader only sees the most
// recent value. The channel is closed when the timer fires, is cancelled, or
// ctx is done. Once the duration has elapsed only the firing tick's 0 is
// delivered.
func (t *Timer) Subscribe(ctx context.Context) <-chan time.Duration {
	ch := make(chan time.Duration, 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		close(ch)
		return ch
	}
	if remaining := t.duration - t.clk.Now().Sub(t.start); remaining > 0 {
		ch <- remaining
	}
	t.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
			t.mu.Unlock()
		case <-t.ctx.Done():
		}
	}()
	return ch
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the remaining duration as of the last tick.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Ticks returns how many ticks the timer has processed.
func (t *Timer) Ticks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Duration returns the total countdown length.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Done is closed once the tick loop has exited and released its ticker.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

func (t *Timer) publishLocked(remaining time.Duration) {
	for ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- remaining
	}
}

func (t *Timer) closeSubsLocked() {
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}
