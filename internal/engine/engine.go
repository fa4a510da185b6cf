// Package engine implements the Phase Engine: the pure decision rules
// of spec.md §4.2 that turn one association's Snapshot into store
// mutations and emitted TargetTransitions. Nothing in this package
// performs I/O or reads wall-clock time directly — every input arrives
// through the Snapshot and the CooldownChecker, which is what makes the
// rules exhaustively testable with literal fixtures (spec.md §4.2, "Why
// pure?").
package engine

import (
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/snapshot"
)

// CooldownChecker is the read-only surface of the Cooldown Tracker the
// engine needs.
type CooldownChecker interface {
	IsActive(target models.TargetIdentifier) bool
}

// Result is everything the Loop Driver must apply on the engine's
// behalf: store mutations and transitions to publish. A failure to
// apply any of it is safe — the next tick recomputes from the
// (unchanged) persisted state and tries again.
type Result struct {
	Transitions []models.TargetTransition

	PutTargets    []models.TargetRecord
	RemoveTargets []models.TargetIdentifier

	// MarkOrphan requests mutating this association's state to
	// Dissociated. Set only when the association was seen Associated
	// and is now judged an orphan (spec.md §4.2, "Orphan detection").
	MarkOrphan bool

	// RemoveAssociation requests deleting the association record
	// entirely. Set only when the association is Dissociated and no
	// target records remain for its load balancer (invariant I4).
	RemoveAssociation bool
}

// Evaluate runs the Phase Engine for one association's snapshot.
func Evaluate(snap snapshot.Snapshot, cooldown CooldownChecker) Result {
	switch snap.State {
	case models.Associated:
		return evaluateAssociated(snap, cooldown)
	case models.Dissociated:
		return evaluateDissociated(snap, cooldown)
	default:
		return Result{}
	}
}

func isOrphan(snap snapshot.Snapshot) bool {
	if !snap.JobExists {
		return true
	}
	return !snap.CloudAbsent && snap.CloudView.State == models.CloudRemoved
}
