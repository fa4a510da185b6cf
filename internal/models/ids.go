package models

// LoadBalancerId identifies a cloud load balancer. Opaque outside this
// package; never parsed, only compared and used as a map key.
type LoadBalancerId string

// JobId and TaskId are opaque identifiers owned by the job manager.
type JobId string
type TaskId string

// IpAddress is the dotted-quad container IP of a task, as reported by
// job operations.
type IpAddress string
