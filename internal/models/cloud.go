package models

// CloudState reflects the load balancer's existence as last observed
// through the connector.
type CloudState string

const (
	CloudActive  CloudState = "ACTIVE"
	CloudRemoved CloudState = "REMOVED"
)

// CloudLoadBalancer is the connector's view of a load balancer's current
// registered membership.
type CloudLoadBalancer struct {
	LoadBalancerId LoadBalancerId
	State          CloudState
	RegisteredIps  map[IpAddress]struct{}
}

// RunningTask is the minimal shape job operations reports for a running
// task: its id and its current container ip.
type RunningTask struct {
	TaskId    TaskId
	IpAddress IpAddress
}
