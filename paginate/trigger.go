package paginate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Trigger is a source of "load more" signals. Signals raised while the
// consumer is busy are dropped, never queued.
type Trigger interface {
	Events() <-chan struct{}
	// Done is closed once the trigger is stopped.
	Done() <-chan struct{}
	Stop()
}

// Appender is the part of a Controller that Drive needs
type Appender interface {
	LoadMore(ctx context.Context) (bool, error)
	State() State
}

// Drive feeds trigger signals into LoadMore until the list is exhausted,
// the trigger stops or ctx is done. It returns the first fetch error.
func Drive(ctx context.Context, a Appender, t Trigger) error {
	for {
		if a.State() == Exhausted {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Done():
			return nil
		case <-t.Events():
			if _, err := a.LoadMore(ctx); err != nil {
				return err
			}
		}
	}
}

// ManualTrigger raises a signal each time Fire is called, at most once per
// interval.
type ManualTrigger struct {
	events  chan struct{}
	done    chan struct{}
	limiter *rate.Limiter
	once    sync.Once

	// fireMu makes the token check, the send and the spend one step
	fireMu sync.Mutex
}

// NewManualTrigger creates a trigger debounced to one signal per minInterval.
// A non-positive interval disables debouncing.
func NewManualTrigger(minInterval time.Duration) *ManualTrigger {
	m := &ManualTrigger{
		events: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if minInterval > 0 {
		m.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return m
}

// Fire raises a signal. It reports false when the signal was debounced,
// the consumer was busy or the trigger is stopped. Only delivered signals
// count against the debounce interval.
func (m *ManualTrigger) Fire() bool {
	select {
	case <-m.done:
		return false
	default:
	}
	m.fireMu.Lock()
	defer m.fireMu.Unlock()
	if m.limiter != nil && m.limiter.Tokens() < 1 {
		return false
	}
	select {
	case m.events <- struct{}{}:
		if m.limiter != nil {
			m.limiter.Allow()
		}
		return true
	default:
		return false
	}
}

func (m *ManualTrigger) Events() <-chan struct{} { return m.events }

func (m *ManualTrigger) Done() <-chan struct{} { return m.done }

// Stop is idempotent
func (m *ManualTrigger) Stop() {
	m.once.Do(func() { close(m.done) })
}

// PollingTrigger checks a proximity predicate on a ticker and raises a
// signal whenever it holds, e.g. when the last rendered row is on screen.
type PollingTrigger struct {
	events chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewPollingTrigger starts polling near every interval until Stop.
func NewPollingTrigger(interval time.Duration, near func() bool) *PollingTrigger {
	p := &PollingTrigger{
		events: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run(interval, near)
	return p
}

func (p *PollingTrigger) run(interval time.Duration, near func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if !near() {
				continue
			}
			select {
			case p.events <- struct{}{}:
			default:
			}
		}
	}
}

func (p *PollingTrigger) Events() <-chan struct{} { return p.events }

func (p *PollingTrigger) Done() <-chan struct{} { return p.done }

// Stop is idempotent
func (p *PollingTrigger) Stop() {
	p.once.Do(func() { close(p.done) })
}
