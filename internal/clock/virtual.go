package clock

import (
	"sync"
	"time"
)

// Virtual is a manually-advanced Clock for deterministic tests, modeled
// on the rx TestScheduler used by the original implementation's test
// suite: time only moves when Advance is called, and every registered
// ticker whose period has elapsed fires (possibly more than once if the
// advance spans multiple periods).
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*virtualTicker
}

// NewVirtual starts a virtual clock at an arbitrary fixed instant.
func NewVirtual() *Virtual {
	return &Virtual{now: time.Unix(0, 0)}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) NewTicker(d time.Duration) Ticker {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &virtualTicker{
		period: d,
		next:   v.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	v.tickers = append(v.tickers, t)
	return t
}

// Advance moves the virtual clock forward by d, firing (synchronously
// delivering, buffered) every ticker whose deadline falls within the
// advanced window. A ticker whose period elapsed more than once during
// the advance only fires once per elapsed period, matching time.Ticker's
// best-effort/no-catch-up-burst semantics.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	target := v.now.Add(d)
	for v.now.Before(target) {
		nextDeadline := target
		for _, t := range v.tickers {
			if t.stopped {
				continue
			}
			if t.next.Before(nextDeadline) {
				nextDeadline = t.next
			}
		}
		v.now = nextDeadline
		for _, t := range v.tickers {
			if t.stopped {
				continue
			}
			if !t.next.After(v.now) {
				select {
				case t.ch <- v.now:
				default:
				}
				t.next = t.next.Add(t.period)
			}
		}
	}
}

type virtualTicker struct {
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *virtualTicker) C() <-chan time.Time { return t.ch }
func (t *virtualTicker) Stop()               { t.stopped = true }
