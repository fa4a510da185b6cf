// Package reconciler implements the Loop Driver of spec.md §4.3: the
// periodic scheduler that turns stored associations into Phase Engine
// evaluations and publishes the resulting transitions, isolating any one
// association's failure from every other.
package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/clock"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/cooldown"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/engine"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/eventstream"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/jobops"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/metrics"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/snapshot"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/store"
)

// Config holds the Loop Driver's tunables, see spec.md §6.
type Config struct {
	// ReconciliationDelay is the minimum interval between tick starts.
	ReconciliationDelay time.Duration
	// ReconciliationTimeout bounds how long this tick keeps dispatching
	// new associations. Once it fires, any association not yet started
	// is skipped and retried next tick; an association already in
	// flight keeps running to completion uninterrupted (spec.md §4.3:
	// "no in-flight emissions are cancelled when the timeout fires, only
	// new work is stopped"). Defaults to 10x ReconciliationDelay.
	ReconciliationTimeout time.Duration
	// FanOut bounds how many associations are evaluated concurrently
	// within one tick.
	FanOut int
}

func (c Config) withDefaults() Config {
	if c.ReconciliationTimeout == 0 {
		c.ReconciliationTimeout = 10 * c.ReconciliationDelay
	}
	if c.FanOut <= 0 {
		c.FanOut = 16
	}
	return c
}

// Reconciler is the Loop Driver: it owns the periodic ticker, the fan-out
// over associations, and the Event Stream transitions are published on.
type Reconciler struct {
	cfg Config

	store  store.AssociationStore
	conn   connector.Connector
	jobOps jobops.JobOperations

	clk      clock.Clock
	cooldown *cooldown.Tracker
	stream   *eventstream.Stream
	metrics  metrics.Metrics

	tickCount atomic.Int64

	shutdownOnce sync.Once
	stopCh       chan struct{}
	stoppedCh    chan struct{}

	log zerolog.Logger
}

func New(
	cfg Config,
	st store.AssociationStore,
	conn connector.Connector,
	jobOps jobops.JobOperations,
	clk clock.Clock,
	mtr metrics.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	if mtr == nil {
		mtr = metrics.Noop{}
	}
	return &Reconciler{
		cfg:       cfg.withDefaults(),
		store:     st,
		conn:      conn,
		jobOps:    jobOps,
		clk:       clk,
		cooldown:  cooldown.New(clk),
		stream:    eventstream.New(),
		metrics:   mtr,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		log:       logger.With().Str("component", "reconciler").Logger(),
	}
}

// Events returns the Event Stream of published transitions (spec.md
// §4.4). Subscribing late sees only transitions published afterward.
func (r *Reconciler) Events() *eventstream.Stream {
	return r.stream
}

// ActivateCooldownFor is the reactive path's only call into the
// reconciler (spec.md §4.5).
func (r *Reconciler) ActivateCooldownFor(target models.TargetIdentifier, duration time.Duration) {
	r.cooldown.Activate(target, duration)
}

// TickCount exposes the reconciliation counter for tests and metrics.
func (r *Reconciler) TickCount() int64 {
	return r.tickCount.Load()
}

// Run drives ticks until ctx is cancelled or Shutdown is called. It
// blocks until the driver has stopped.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := r.clk.NewTicker(r.cfg.ReconciliationDelay)
	defer ticker.Stop()
	defer close(r.stoppedCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C():
			r.tick(ctx)
		}
	}
}

// Shutdown idempotently stops the driver and closes the Event Stream.
// In-flight external calls are left to be abandoned by their own
// context; no committed store mutation is rolled back (spec.md §5,
// "Cancellation").
func (r *Reconciler) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.stopCh)
		<-r.stoppedCh
		r.stream.Close()
	})
}

func (r *Reconciler) tick(parentCtx context.Context) {
	start := r.clk.Now()
	deadlineCtx, cancel := context.WithTimeout(parentCtx, r.cfg.ReconciliationTimeout)
	defer cancel()

	assocs, err := r.store.GetAssociations(deadlineCtx)
	if err != nil {
		r.metrics.Increment("tick.load_associations_failed")
		r.log.Error().Err(err).Msg("failed to load associations, skipping tick")
		r.tickCount.Add(1)
		return
	}
	r.metrics.Gauge("tick.associations", len(assocs))

	cachedConn := r.warmConnectorCache(deadlineCtx, assocs)

	// Every dispatched association runs against parentCtx, never
	// deadlineCtx: once started, its store mutations must not be torn
	// down by the tick deadline (spec.md §4.3). deadlineCtx only gates
	// the dispatch loop below, so it stops handing out new work once the
	// deadline fires, without touching associations already in flight.
	var group errgroup.Group
	group.SetLimit(r.cfg.FanOut)

dispatch:
	for _, assoc := range assocs {
		select {
		case <-deadlineCtx.Done():
			r.metrics.Increment("tick.deadline_exceeded")
			r.log.Warn().Msg("tick deadline reached, skipping remaining associations this tick")
			break dispatch
		default:
		}
		assoc := assoc
		group.Go(func() error {
			r.processAssociation(parentCtx, assoc, cachedConn)
			return nil
		})
	}
	// processAssociation never returns an error; Wait here only blocks
	// until every dispatched association has finished.
	_ = group.Wait()

	r.tickCount.Add(1)
	r.metrics.Increment("tick.completed")
	r.metrics.Duration("tick.duration", r.clk.Now().Sub(start))
}

// warmConnectorCache fetches each distinct lbId's cloud view at most
// once per tick, batching connector calls across associations that
// share a load balancer (spec.md §4.3, step 2).
func (r *Reconciler) warmConnectorCache(ctx context.Context, assocs []models.Association) connector.Connector {
	lbIds := make(map[models.LoadBalancerId]struct{})
	for _, a := range assocs {
		lbIds[a.Key.LoadBalancerId] = struct{}{}
	}

	cache := &cachedConnector{views: make(map[models.LoadBalancerId]cloudResult, len(lbIds))}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.FanOut)
	for lbId := range lbIds {
		lbId := lbId
		group.Go(func() error {
			lb, err := r.conn.GetLoadBalancer(gctx, lbId)
			mu.Lock()
			cache.views[lbId] = cloudResult{lb: lb, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return cache
}

type cloudResult struct {
	lb  models.CloudLoadBalancer
	err error
}

// cachedConnector answers from a tick's pre-warmed view instead of
// issuing a redundant call per association.
type cachedConnector struct {
	views map[models.LoadBalancerId]cloudResult
}

func (c *cachedConnector) GetLoadBalancer(_ context.Context, lbId models.LoadBalancerId) (models.CloudLoadBalancer, error) {
	r, ok := c.views[lbId]
	if !ok {
		return models.CloudLoadBalancer{}, connector.ErrNotFetched
	}
	return r.lb, r.err
}

func (r *Reconciler) processAssociation(ctx context.Context, assoc models.Association, conn connector.Connector) {
	log := r.log.With().Str("association", assoc.Key.String()).Logger()

	snap, err := snapshot.Gather(ctx, assoc, conn, r.jobOps, r.store)
	if err != nil {
		r.metrics.Increment("association.gather_failed")
		log.Error().Err(err).Msg("failed to gather snapshot, skipping this tick")
		return
	}

	result := engine.Evaluate(snap, r.cooldown)

	if err := r.applyResult(ctx, assoc, result); err != nil {
		r.metrics.Increment("association.apply_failed")
		log.Error().Err(err).Msg("failed to apply result, will recompute next tick")
		return
	}

	if len(result.Transitions) > 0 {
		r.metrics.Increment("transitions.emitted")
		r.stream.Publish(result.Transitions...)
	}
}

func (r *Reconciler) applyResult(ctx context.Context, assoc models.Association, result engine.Result) error {
	if len(result.PutTargets) > 0 {
		if err := r.store.PutTargets(ctx, result.PutTargets); err != nil {
			return err
		}
	}
	if len(result.RemoveTargets) > 0 {
		if err := r.store.RemoveTargets(ctx, result.RemoveTargets); err != nil {
			return err
		}
	}
	if result.MarkOrphan {
		if err := r.store.PutAssociation(ctx, assoc.Key, models.Dissociated); err != nil {
			return err
		}
	}
	if result.RemoveAssociation {
		if err := r.store.RemoveAssociation(ctx, assoc.Key); err != nil {
			return err
		}
	}
	return nil
}
