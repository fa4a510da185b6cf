// Package snapshot gathers the per-association, per-tick immutable view
// the Phase Engine decides from, see spec.md §3 ("Cloud LoadBalancer
// view") and §4.2 ("Inputs to one evaluation").
package snapshot

import (
	"context"
	"errors"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/jobops"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/store"
)

// Snapshot is the immutable input to one Phase Engine evaluation for a
// single association.
type Snapshot struct {
	Key   models.AssociationKey
	State models.AssociationState

	TasksRunning []models.RunningTask
	TasksAbsent  bool // GetTasks errored; rules 1-4 are skipped this tick
	JobExists    bool // from JobOperations.GetJob — orphan signal (a)

	CloudView   models.CloudLoadBalancer
	CloudAbsent bool // connector errored; rules 1-4 are skipped this tick

	Stored map[models.TargetIdentifier]models.TargetState
}

// Gather collects one Snapshot for assoc from its three external
// collaborators and the target store. A connector or GetTasks failure is
// isolated into the corresponding Absent flag, and a GetJob failure into
// JobExists; Gather itself never returns an error for a collaborator
// failure — only an error returned by the target store read propagates.
func Gather(
	ctx context.Context,
	assoc models.Association,
	conn connector.Connector,
	jobOps jobops.JobOperations,
	st store.AssociationStore,
) (Snapshot, error) {
	snap := Snapshot{
		Key:   assoc.Key,
		State: assoc.State,
	}

	if cloud, err := conn.GetLoadBalancer(ctx, assoc.Key.LoadBalancerId); err != nil {
		snap.CloudAbsent = true
	} else {
		snap.CloudView = cloud
	}

	tasks, err := jobOps.GetTasks(ctx, assoc.Key.JobId)
	if err != nil {
		snap.TasksAbsent = true
	} else {
		snap.TasksRunning = tasks
	}

	exists, err := jobOps.GetJob(ctx, assoc.Key.JobId)
	switch {
	case err == nil:
		snap.JobExists = exists
	case errors.Is(err, jobops.ErrJobNotFound):
		snap.JobExists = false
	default:
		// A transient GetJob error must not be mistaken for an orphan:
		// assume existence and let the next tick retry via GetTasks.
		snap.JobExists = true
	}

	targetsSeq, err := st.GetTargets(ctx, assoc.Key.LoadBalancerId)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Stored = make(map[models.TargetIdentifier]models.TargetState)
	for id, state := range targetsSeq {
		snap.Stored[id] = state
	}

	return snap, nil
}
