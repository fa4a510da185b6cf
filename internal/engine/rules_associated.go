package engine

import (
	"sort"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/snapshot"
)

// evaluateAssociated implements spec.md §4.2's decision table for
// S = Associated.
func evaluateAssociated(snap snapshot.Snapshot, cooldown CooldownChecker) Result {
	if isOrphan(snap) {
		return Result{MarkOrphan: true}
	}
	if snap.TasksAbsent || snap.CloudAbsent {
		// Job operations errored, or the connector failed: skip rules
		// 1-4 for this association this tick. Next tick retries.
		return Result{}
	}

	lbId := snap.Key.LoadBalancerId
	registeredIps := snap.CloudView.RegisteredIps

	runningTaskIds := make(map[models.TaskId]struct{}, len(snap.TasksRunning))
	for _, task := range snap.TasksRunning {
		runningTaskIds[task.TaskId] = struct{}{}
	}

	var result Result

	// Rule 1: register missing running tasks.
	tasksSorted := append([]models.RunningTask(nil), snap.TasksRunning...)
	sort.Slice(tasksSorted, func(i, j int) bool {
		if tasksSorted[i].TaskId != tasksSorted[j].TaskId {
			return tasksSorted[i].TaskId < tasksSorted[j].TaskId
		}
		return tasksSorted[i].IpAddress < tasksSorted[j].IpAddress
	})
	for _, task := range tasksSorted {
		if _, inLb := registeredIps[task.IpAddress]; inLb {
			continue
		}
		target := models.TargetIdentifier{LoadBalancerId: lbId, TaskId: task.TaskId, IpAddress: task.IpAddress}
		if cooldown.IsActive(target) {
			continue
		}
		result.Transitions = append(result.Transitions, models.TargetTransition{
			Identifier:   target,
			DesiredState: models.Registered,
			Priority:     models.PriorityLow,
			Reason:       models.ReasonMissingInLb,
		})
	}

	touched := make(map[models.TargetIdentifier]struct{})
	for _, id := range sortedStoredKeys(snap.Stored) {
		state := snap.Stored[id]
		_, inLb := registeredIps[id.IpAddress]
		_, running := runningTaskIds[id.TaskId]

		switch {
		case state == models.Registered && inLb && !running:
			// Rule 2: deregister extras we previously registered.
			if cooldown.IsActive(id) {
				continue
			}
			result.Transitions = append(result.Transitions, models.TargetTransition{
				Identifier:   id,
				DesiredState: models.Deregistered,
				Priority:     models.PriorityLow,
				Reason:       models.ReasonExtraInLb,
			})
			touched[id] = struct{}{}

		case state == models.Deregistered && inLb:
			// Rule 3: deregister extras we already marked deregistered
			// but that are still present in the cloud.
			if cooldown.IsActive(id) {
				continue
			}
			result.Transitions = append(result.Transitions, models.TargetTransition{
				Identifier:   id,
				DesiredState: models.Deregistered,
				Priority:     models.PriorityLow,
				Reason:       models.ReasonExtraInLb,
			})
			touched[id] = struct{}{}

		case state == models.Registered && !inLb && !running:
			// Rule 4: inconsistent-store repair.
			if cooldown.IsActive(id) {
				continue
			}
			result.PutTargets = append(result.PutTargets, models.TargetRecord{Identifier: id, State: models.Deregistered})
			result.Transitions = append(result.Transitions, models.TargetTransition{
				Identifier:   id,
				DesiredState: models.Deregistered,
				Priority:     models.PriorityLow,
				Reason:       models.ReasonInconsistentStore,
			})
			touched[id] = struct{}{}
		}
	}

	// Rule 5: sweep. No cooldown gate, no emission.
	for _, id := range sortedStoredKeys(snap.Stored) {
		if _, already := touched[id]; already {
			continue
		}
		state := snap.Stored[id]
		_, inLb := registeredIps[id.IpAddress]
		if state == models.Deregistered && !inLb {
			result.RemoveTargets = append(result.RemoveTargets, id)
		}
	}

	return result
}

func sortedStoredKeys(stored map[models.TargetIdentifier]models.TargetState) []models.TargetIdentifier {
	keys := make([]models.TargetIdentifier, 0, len(stored))
	for id := range stored {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TaskId != keys[j].TaskId {
			return keys[i].TaskId < keys[j].TaskId
		}
		return keys[i].IpAddress < keys[j].IpAddress
	})
	return keys
}
