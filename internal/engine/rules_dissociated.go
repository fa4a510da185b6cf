package engine

import (
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/snapshot"
)

// evaluateDissociated implements spec.md §4.2's decision table for
// S = Dissociated: deregister every stored target that isn't confirmed
// deregistered yet, sweep target records once the cloud confirms
// removal, then sweep the association itself once no target records
// remain (invariant I4).
func evaluateDissociated(snap snapshot.Snapshot, cooldown CooldownChecker) Result {
	var result Result

	knowsCloud := !snap.CloudAbsent
	ipLive := func(ip models.IpAddress) bool {
		if !knowsCloud {
			return false
		}
		_, ok := snap.CloudView.RegisteredIps[ip]
		return ok
	}

	touched := make(map[models.TargetIdentifier]struct{}, len(snap.Stored))

	// Rule 1: every stored Registered row gets a deregister request,
	// unconditionally — step 1 carries no cloud condition, not even
	// when the load balancer itself is gone from the cloud. A stored
	// Deregistered row gets the request repeated only while the cloud
	// still shows its ip live, i.e. the cloud has not applied it yet.
	for _, id := range sortedStoredKeys(snap.Stored) {
		state := snap.Stored[id]
		if state == models.Deregistered && !ipLive(id.IpAddress) {
			continue
		}
		touched[id] = struct{}{}
		if cooldown.IsActive(id) {
			continue
		}
		if state != models.Deregistered {
			result.PutTargets = append(result.PutTargets, models.TargetRecord{Identifier: id, State: models.Deregistered})
		}
		result.Transitions = append(result.Transitions, models.TargetTransition{
			Identifier:   id,
			DesiredState: models.Deregistered,
			Priority:     models.PriorityLow,
			Reason:       models.ReasonOrphanCleanup,
		})
	}

	// Rule 2: sweep whatever rule 1 left untouched — a Deregistered row
	// whose ip the cloud no longer shows live, including every row when
	// the load balancer itself is Removed. Only evaluated when the
	// cloud view is known (a connector failure leaves membership
	// unknown, so nothing is swept this tick — next tick retries).
	removedCount := 0
	if knowsCloud {
		for _, id := range sortedStoredKeys(snap.Stored) {
			if _, already := touched[id]; already {
				continue
			}
			result.RemoveTargets = append(result.RemoveTargets, id)
			removedCount++
		}
	}

	// Rule 3: sweep association once no target records remain.
	if len(snap.Stored)-removedCount == 0 {
		result.RemoveAssociation = true
	}

	return result
}
