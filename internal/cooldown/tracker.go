// Package cooldown implements the per-target suppression window
// described in spec.md §4.1: a recent reactive update gets a window of
// time before reconciliation is allowed to second-guess it.
package cooldown

import (
	"sync"
	"time"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/clock"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// Tracker maps a TargetIdentifier to the deadline after which
// reconciliation is allowed to emit for it again. Activate calls are
// commutative: whichever deadline is latest wins, regardless of call
// order (spec.md §5, "Shared-resource policy").
type Tracker struct {
	clk clock.Clock

	mu       sync.Mutex
	deadline map[models.TargetIdentifier]time.Time
}

func New(clk clock.Clock) *Tracker {
	return &Tracker{
		clk:      clk,
		deadline: make(map[models.TargetIdentifier]time.Time),
	}
}

// Activate sets target's cooldown deadline to now+duration, unless a
// later deadline is already stored.
func (t *Tracker) Activate(target models.TargetIdentifier, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	until := t.clk.Now().Add(duration)
	if existing, ok := t.deadline[target]; ok && existing.After(until) {
		return
	}
	t.deadline[target] = until
}

// IsActive reports whether target has a stored deadline strictly after
// now. Expired entries are pruned opportunistically on lookup.
func (t *Tracker) IsActive(target models.TargetIdentifier) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	until, ok := t.deadline[target]
	if !ok {
		return false
	}
	if !until.After(now) {
		delete(t.deadline, target)
		return false
	}
	return true
}
