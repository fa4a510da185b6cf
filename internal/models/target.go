package models

import "fmt"

// TargetState reflects what the reconciler believes it has most recently
// requested for a target, not necessarily what the cloud has applied.
type TargetState string

const (
	Registered   TargetState = "REGISTERED"
	Deregistered TargetState = "DEREGISTERED"
)

// TargetIdentifier is the three-part key (lbId, taskId, ip). Both task id
// and ip are significant: a later task can reuse an ip, and a restarted
// task can come back with a different ip. Never collapse this to (lbId, ip).
type TargetIdentifier struct {
	LoadBalancerId LoadBalancerId
	TaskId         TaskId
	IpAddress      IpAddress
}

func (t TargetIdentifier) String() string {
	return fmt.Sprintf("%s/%s/%s", t.LoadBalancerId, t.TaskId, t.IpAddress)
}

// TargetRecord is the stored (identifier, state) row.
type TargetRecord struct {
	Identifier TargetIdentifier
	State      TargetState
}
