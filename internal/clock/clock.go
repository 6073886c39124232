// Package clock provides the tick source that drives playback countdowns.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPeriod is the tick period used for playback.
const DefaultPeriod = 100 * time.Millisecond

// TickFunc receives the elapsed time of one tick.
type TickFunc func(dt time.Duration)

// Clock delivers periodic ticks to a single subscriber.
type Clock interface {
	Subscribe(fn TickFunc)
	Unsubscribe()
}

// Ticker is a fixed-rate Clock backed by a clockwork clock, so tests can
// swap in a fake.
type Ticker struct {
	clock  clockwork.Clock
	period time.Duration

	mu  sync.Mutex
	sub *subscription
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	firing    bool
}

func NewTicker(c clockwork.Clock, period time.Duration) *Ticker {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Ticker{clock: c, period: period}
}

func (t *Ticker) Period() time.Duration {
	return t.period
}

// Subscribe starts ticking into fn, replacing any previous subscriber.
func (t *Ticker) Subscribe(fn TickFunc) {
	t.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()

	go t.run(ctx, sub, fn)
}

// Unsubscribe stops ticking. When no callback is running it waits for the
// ticker goroutine to exit. While a callback is running (including calls made
// from inside it) it returns at once: the callback in flight finishes and no
// new one starts.
func (t *Ticker) Unsubscribe() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub == nil {
		return
	}

	sub.mu.Lock()
	sub.cancelled = true
	firing := sub.firing
	sub.mu.Unlock()

	sub.cancel()
	if !firing {
		<-sub.done
	}
}

func (t *Ticker) run(ctx context.Context, sub *subscription, fn TickFunc) {
	defer close(sub.done)

	tk := t.clock.NewTicker(t.period)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.Chan():
			sub.mu.Lock()
			if sub.cancelled {
				sub.mu.Unlock()
				return
			}
			sub.firing = true
			sub.mu.Unlock()

			fn(t.period)

			sub.mu.Lock()
			sub.firing = false
			stop := sub.cancelled
			sub.mu.Unlock()
			if stop {
				return
			}
		}
	}
}

// Manual is a Clock whose ticks are produced by the caller.
type Manual struct {
	period time.Duration

	mu sync.Mutex
	fn TickFunc
}

func NewManual(period time.Duration) *Manual {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Manual{period: period}
}

func (m *Manual) Subscribe(fn TickFunc) {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
}

func (m *Manual) Unsubscribe() {
	m.mu.Lock()
	m.fn = nil
	m.mu.Unlock()
}

// Subscribed reports whether a subscriber is attached.
func (m *Manual) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Tick delivers one tick and reports whether anybody received it.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(m.period)
	return true
}

// Advance delivers whole ticks covering d, stopping early once the
// subscriber detaches. It returns the number of ticks delivered.
func (m *Manual) Advance(d time.Duration) int {
	n := 0
	for elapsed := time.Duration(0); elapsed+m.period <= d; elapsed += m.period {
		if !m.Tick() {
			break
		}
		n++
	}
	return n
}
