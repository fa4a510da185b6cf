// Package hcloudconnector implements the Connector contract against a
// real Hetzner Cloud Load Balancer, grounded on the hcloud-go v2 client
// usage in internal/platform/hcloud/load_balancer.go (EnsureLoadBalancer,
// AddTarget): same client type, same ctx/err-wrap idiom.
package hcloudconnector

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"golang.org/x/time/rate"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// hcloudAPIRateLimit bounds calls into the Hetzner Cloud API the same way
// the teacher's agent scheduler bounds its control-plane polling
// (nlb-agent/internal/scheduler/scheduler.go uses rate.NewLimiter against
// its own poll loop): one tick's fan-out across many load balancers must
// not burst past what the account's API quota allows.
const hcloudAPIRateLimit = 10

// Connector treats models.LoadBalancerId as the Hetzner Cloud load
// balancer's name.
type Connector struct {
	client  *hcloud.Client
	limiter *rate.Limiter
}

func New(token string) *Connector {
	return &Connector{
		client:  hcloud.NewClient(hcloud.WithToken(token)),
		limiter: rate.NewLimiter(rate.Limit(hcloudAPIRateLimit), hcloudAPIRateLimit),
	}
}

func (c *Connector) GetLoadBalancer(ctx context.Context, lbId models.LoadBalancerId) (models.CloudLoadBalancer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.CloudLoadBalancer{}, fmt.Errorf("hcloud connector: rate limit wait for %s: %w", lbId, err)
	}

	lb, _, err := c.client.LoadBalancer.Get(ctx, string(lbId))
	if err != nil {
		return models.CloudLoadBalancer{}, fmt.Errorf("hcloud connector: get load balancer %s: %w", lbId, err)
	}
	if lb == nil {
		// Deleted out-of-band: the API returns a nil load balancer and
		// no error rather than a 404, matching the "delete" check used
		// by DeleteLoadBalancer in the teacher's hcloud wrapper.
		return models.CloudLoadBalancer{
			LoadBalancerId: lbId,
			State:          models.CloudRemoved,
			RegisteredIps:  map[models.IpAddress]struct{}{},
		}, nil
	}

	ips := make(map[models.IpAddress]struct{}, len(lb.Targets))
	for _, target := range lb.Targets {
		if target.Type != hcloud.LoadBalancerTargetTypeServer || target.Server == nil || target.Server.Server == nil {
			continue
		}
		srv := target.Server.Server
		for _, priv := range srv.PrivateNet {
			if priv.IP != nil {
				ips[models.IpAddress(priv.IP.String())] = struct{}{}
			}
		}
		if len(srv.PrivateNet) == 0 && srv.PublicNet.IPv4.IP != nil {
			ips[models.IpAddress(srv.PublicNet.IPv4.IP.String())] = struct{}{}
		}
	}

	return models.CloudLoadBalancer{
		LoadBalancerId: lbId,
		State:          models.CloudActive,
		RegisteredIps:  ips,
	}, nil
}

var _ connector.Connector = (*Connector)(nil)
