// Package etcdstore is the durable AssociationStore backed by etcd,
// grounded on the teacher's internal/etcd package: the same
// path-building, JSON-encoded-value, and retry-wrapped-write idioms,
// adapted from target-group placement records to association/target
// records.
package etcdstore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/store"
)

// Store implements store.AssociationStore against an etcd cluster.
type Store struct {
	client *clientv3.Client
	log    zerolog.Logger
}

func New(client *clientv3.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, log: logger.With().Str("component", "etcdstore").Logger()}
}

var _ store.AssociationStore = (*Store)(nil)

type associationDTO struct {
	State models.AssociationState `json:"state"`
}

type targetDTO struct {
	State models.TargetState `json:"state"`
}

func (s *Store) PutAssociation(ctx context.Context, key models.AssociationKey, state models.AssociationState) error {
	value, err := json.Marshal(associationDTO{State: state})
	if err != nil {
		return fmt.Errorf("etcdstore: marshal association %s: %w", key, err)
	}
	return s.retryPut(ctx, associationKey(key), string(value))
}

func (s *Store) GetAssociations(ctx context.Context) ([]models.Association, error) {
	resp, err := s.client.Get(ctx, associationsRoot, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdstore: list associations: %w", err)
	}
	out := make([]models.Association, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		key, err := parseAssociationKey(string(kv.Key))
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed association key")
			continue
		}
		var dto associationDTO
		if err := json.Unmarshal(kv.Value, &dto); err != nil {
			s.log.Warn().Err(err).Str("key", string(kv.Key)).Msg("skipping malformed association value")
			continue
		}
		out = append(out, models.Association{Key: key, State: dto.State})
	}
	return out, nil
}

func (s *Store) GetAssociatedLoadBalancersForJob(ctx context.Context, jobId models.JobId) ([]models.LoadBalancerId, error) {
	resp, err := s.client.Get(ctx, associationsForJobPrefix(jobId), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdstore: list load balancers for job %s: %w", jobId, err)
	}
	out := make([]models.LoadBalancerId, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		key, err := parseAssociationKey(string(kv.Key))
		if err != nil {
			continue
		}
		var dto associationDTO
		if err := json.Unmarshal(kv.Value, &dto); err != nil {
			continue
		}
		if dto.State == models.Associated {
			out = append(out, key.LoadBalancerId)
		}
	}
	return out, nil
}

func (s *Store) RemoveAssociation(ctx context.Context, key models.AssociationKey) error {
	return s.retryDelete(ctx, associationKey(key))
}

func (s *Store) PutTargets(ctx context.Context, records []models.TargetRecord) error {
	if len(records) == 0 {
		return nil
	}
	ops := make([]clientv3.Op, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(targetDTO{State: rec.State})
		if err != nil {
			return fmt.Errorf("etcdstore: marshal target %s: %w", rec.Identifier, err)
		}
		ops = append(ops, clientv3.OpPut(targetKey(rec.Identifier), string(value)))
	}
	return s.retryTxn(ctx, ops)
}

func (s *Store) GetTargets(ctx context.Context, lbId models.LoadBalancerId) (iter.Seq2[models.TargetIdentifier, models.TargetState], error) {
	resp, err := s.client.Get(ctx, targetsForLbPrefix(lbId), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("etcdstore: list targets for %s: %w", lbId, err)
	}

	type pair struct {
		id    models.TargetIdentifier
		state models.TargetState
	}
	pairs := make([]pair, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id, err := parseTargetKey(lbId, string(kv.Key))
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed target key")
			continue
		}
		var dto targetDTO
		if err := json.Unmarshal(kv.Value, &dto); err != nil {
			s.log.Warn().Err(err).Str("key", string(kv.Key)).Msg("skipping malformed target value")
			continue
		}
		pairs = append(pairs, pair{id: id, state: dto.State})
	}

	return func(yield func(models.TargetIdentifier, models.TargetState) bool) {
		for _, p := range pairs {
			if !yield(p.id, p.state) {
				return
			}
		}
	}, nil
}

func (s *Store) RemoveTargets(ctx context.Context, ids []models.TargetIdentifier) error {
	if len(ids) == 0 {
		return nil
	}
	ops := make([]clientv3.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, clientv3.OpDelete(targetKey(id)))
	}
	return s.retryTxn(ctx, ops)
}

// retryPut, retryDelete, retryTxn wrap a single logical write with a
// short backoff-retried attempt, the same way the teacher wraps a
// reconciliation attempt in internal/reconciler/recontile_algo.go. This
// absorbs a transient etcd network blip within one store call; the
// driver's own "skip this tick, retry next tick" policy (spec.md §7)
// only applies once these attempts are exhausted.
func (s *Store) retryPut(ctx context.Context, key, value string) error {
	return s.retryTxn(ctx, []clientv3.Op{clientv3.OpPut(key, value)})
}

func (s *Store) retryDelete(ctx context.Context, key string) error {
	return s.retryTxn(ctx, []clientv3.Op{clientv3.OpDelete(key)})
}

func (s *Store) retryTxn(ctx context.Context, ops []clientv3.Op) error {
	err := retry.Do(
		func() error {
			_, err := s.client.Txn(ctx).Then(ops...).Commit()
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(attempt uint, err error) {
			s.log.Warn().Err(err).Uint("attempt", attempt).Msg("retrying etcd write")
		}),
	)
	if err != nil {
		return fmt.Errorf("etcdstore: commit txn: %w", err)
	}
	return nil
}
