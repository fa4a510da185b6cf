// Package connector defines the Connector contract: read-only access to
// a cloud load balancer's current membership, see spec.md §4.5.
package connector

import (
	"context"
	"errors"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// ErrNotFetched is returned by the Loop Driver's per-tick connector
// cache when asked about an lbId it never warmed, which should not
// happen in normal operation.
var ErrNotFetched = errors.New("connector: load balancer was not fetched this tick")

// Connector reads the current state of one load balancer from the
// cloud. Implementations must isolate failures to the requested lbId —
// a single bad lbId must never affect callers asking about another.
type Connector interface {
	GetLoadBalancer(ctx context.Context, lbId models.LoadBalancerId) (models.CloudLoadBalancer, error)
}
