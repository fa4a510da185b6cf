package etcdstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const leaderLeaseTTLSeconds = 15

// Elector ensures only one reconciler replica drives ticks at a time,
// campaigning on LeadershipKey. Grounded on the teacher's
// ReconcilerClient.BecomeLeader (internal/etcd/reconciler.go); the
// target store itself has no leader gate (spec.md §5, "Shared-resource
// policy" — both the reactive path and the reconciler write through it
// concurrently), only the tick scheduler does.
type Elector struct {
	nodeID   string
	client   *clientv3.Client
	session  *concurrency.Session
	election *concurrency.Election
	log      zerolog.Logger
}

func NewElector(client *clientv3.Client, nodeID string, logger zerolog.Logger) *Elector {
	return &Elector{
		client: client,
		nodeID: nodeID,
		log:    logger.With().Str("component", "etcdstore.elector").Logger(),
	}
}

// Campaign blocks until this replica wins leadership or ctx is
// cancelled. On success it returns a channel that closes when
// leadership is lost (session expiry or Resign).
func (e *Elector) Campaign(ctx context.Context) (<-chan struct{}, error) {
	session, err := concurrency.NewSession(
		e.client,
		concurrency.WithContext(ctx),
		concurrency.WithTTL(leaderLeaseTTLSeconds),
	)
	if err != nil {
		return nil, fmt.Errorf("etcdstore: create election session: %w", err)
	}
	e.session = session
	e.election = concurrency.NewElection(session, LeadershipKey)

	for {
		err = e.election.Campaign(ctx, e.nodeID)
		if errors.Is(err, concurrency.ErrElectionNotLeader) {
			continue
		}
		if errors.Is(err, context.Canceled) {
			return nil, ctx.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("etcdstore: campaign: %w", err)
		}
		e.log.Info().Str("node_id", e.nodeID).Msg("won reconciler leader election")
		return e.session.Done(), nil
	}
}

// Resign gives up leadership and closes the election session.
func (e *Elector) Resign(ctx context.Context) error {
	if e.election != nil {
		if err := e.election.Resign(ctx); err != nil {
			e.log.Warn().Err(err).Msg("failed to resign leadership cleanly")
		}
	}
	if e.session != nil {
		return e.session.Close()
	}
	return nil
}
