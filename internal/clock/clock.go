// Package clock abstracts wall-clock time so the Loop Driver's periodic
// scheduling and the Cooldown Tracker's deadlines can be driven by a
// virtual clock in tests, instead of reading time.Now() directly.
package clock

import "time"

// Clock is the minimal surface the reconciler needs: the current time,
// and a way to be notified on an interval. No pack example repo carries
// a virtual-clock library (the teacher reads time.Now()/time.NewTicker
// directly everywhere), so this is a small stdlib-only abstraction built
// in the teacher's own channel-and-timer idiom (see
// internal/reconciler/delay.go in the teacher repo) rather than reading
// time.Now() ad hoc throughout the reconciler.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors time.Ticker's usable surface.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock, backed by the standard library.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
