package models

import "fmt"

// AssociationState is the lifecycle state of a (job, load balancer) pair.
type AssociationState string

const (
	Associated  AssociationState = "ASSOCIATED"
	Dissociated AssociationState = "DISSOCIATED"
)

// AssociationKey is the primary key of an Association record.
type AssociationKey struct {
	JobId          JobId
	LoadBalancerId LoadBalancerId
}

func (k AssociationKey) String() string {
	return fmt.Sprintf("%s/%s", k.JobId, k.LoadBalancerId)
}

// Association is the (job, load balancer) relationship record, see
// spec.md §3. Dissociated is terminal before sweep: once swept, the
// record is removed from the store entirely (see invariant I4).
type Association struct {
	Key   AssociationKey
	State AssociationState
}
