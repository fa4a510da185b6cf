// Package store defines the Association Store contract described in
// spec.md §3: persistence for (job, load balancer, association-state)
// tuples and per-(load balancer, task, ip) target states.
package store

import (
	"context"
	"errors"
	"iter"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// ErrNotFound is the sentinel for a lookup with no matching record. No
// AssociationStore method returns it: GetTargets for an unknown lbId
// yields an empty sequence, and removing a missing record succeeds.
var ErrNotFound = errors.New("store: not found")

// AssociationStore is implemented by every persistence backend behind
// the reconciler. All operations are asynchronous-capable in the
// originating system; here that is modeled with context.Context and a
// blocking call, which is equivalent for every backend in this repo.
// Reads within one call present a coherent snapshot; concurrent writers
// outside the loop (the reactive path) may interleave across calls —
// see spec.md §3 and §5 ("Shared-resource policy").
type AssociationStore interface {
	PutAssociation(ctx context.Context, key models.AssociationKey, state models.AssociationState) error
	GetAssociations(ctx context.Context) ([]models.Association, error)
	GetAssociatedLoadBalancersForJob(ctx context.Context, jobId models.JobId) ([]models.LoadBalancerId, error)
	RemoveAssociation(ctx context.Context, key models.AssociationKey) error

	PutTargets(ctx context.Context, records []models.TargetRecord) error
	// GetTargets returns a lazy, ordered-by-key sequence over the
	// targets stored for lbId, yielding (identifier, state) pairs.
	GetTargets(ctx context.Context, lbId models.LoadBalancerId) (iter.Seq2[models.TargetIdentifier, models.TargetState], error)
	RemoveTargets(ctx context.Context, ids []models.TargetIdentifier) error
}
