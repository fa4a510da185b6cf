// Package inmemory is a fake Connector for tests: each load balancer's
// response (or failure) is configured directly instead of reached over
// the network.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

type Connector struct {
	mu    sync.Mutex
	byLb  map[models.LoadBalancerId]models.CloudLoadBalancer
	fails map[models.LoadBalancerId]error
}

func New() *Connector {
	return &Connector{
		byLb:  make(map[models.LoadBalancerId]models.CloudLoadBalancer),
		fails: make(map[models.LoadBalancerId]error),
	}
}

// Set configures the response returned for lbId's next (and all
// subsequent) GetLoadBalancer calls, until overwritten.
func (c *Connector) Set(lb models.CloudLoadBalancer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fails, lb.LoadBalancerId)
	c.byLb[lb.LoadBalancerId] = lb
}

// Fail makes lbId's next GetLoadBalancer calls return err.
func (c *Connector) Fail(lbId models.LoadBalancerId, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails[lbId] = err
}

func (c *Connector) GetLoadBalancer(_ context.Context, lbId models.LoadBalancerId) (models.CloudLoadBalancer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.fails[lbId]; ok {
		return models.CloudLoadBalancer{}, err
	}
	lb, ok := c.byLb[lbId]
	if !ok {
		return models.CloudLoadBalancer{}, fmt.Errorf("inmemory connector: unknown load balancer %s", lbId)
	}
	return lb, nil
}

var _ connector.Connector = (*Connector)(nil)
