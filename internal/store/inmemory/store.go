// Package inmemory is a thread-safe AssociationStore used by tests and
// by standalone deployments that do not need cross-instance durability.
package inmemory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/store"
)

type Store struct {
	mu sync.Mutex

	associations map[models.AssociationKey]models.AssociationState
	targets      map[models.LoadBalancerId]map[models.TargetIdentifier]models.TargetState
}

func New() *Store {
	return &Store{
		associations: make(map[models.AssociationKey]models.AssociationState),
		targets:      make(map[models.LoadBalancerId]map[models.TargetIdentifier]models.TargetState),
	}
}

func (s *Store) PutAssociation(_ context.Context, key models.AssociationKey, state models.AssociationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations[key] = state
	return nil
}

func (s *Store) GetAssociations(_ context.Context) ([]models.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Association, 0, len(s.associations))
	for key, state := range s.associations {
		out = append(out, models.Association{Key: key, State: state})
	}
	slices.SortFunc(out, func(a, b models.Association) int {
		if a.Key.JobId != b.Key.JobId {
			if a.Key.JobId < b.Key.JobId {
				return -1
			}
			return 1
		}
		if a.Key.LoadBalancerId < b.Key.LoadBalancerId {
			return -1
		}
		if a.Key.LoadBalancerId > b.Key.LoadBalancerId {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) GetAssociatedLoadBalancersForJob(_ context.Context, jobId models.JobId) ([]models.LoadBalancerId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LoadBalancerId
	for key, state := range s.associations {
		if key.JobId == jobId && state == models.Associated {
			out = append(out, key.LoadBalancerId)
		}
	}
	return out, nil
}

func (s *Store) RemoveAssociation(_ context.Context, key models.AssociationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.associations, key)
	return nil
}

func (s *Store) PutTargets(_ context.Context, records []models.TargetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		byLb := s.targets[rec.Identifier.LoadBalancerId]
		if byLb == nil {
			byLb = make(map[models.TargetIdentifier]models.TargetState)
			s.targets[rec.Identifier.LoadBalancerId] = byLb
		}
		byLb[rec.Identifier] = rec.State
	}
	return nil
}

func (s *Store) GetTargets(_ context.Context, lbId models.LoadBalancerId) (iter.Seq2[models.TargetIdentifier, models.TargetState], error) {
	s.mu.Lock()
	byLb := s.targets[lbId]
	snapshot := make(map[models.TargetIdentifier]models.TargetState, len(byLb))
	for id, state := range byLb {
		snapshot[id] = state
	}
	s.mu.Unlock()

	ids := make([]models.TargetIdentifier, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b models.TargetIdentifier) int {
		switch {
		case a.TaskId != b.TaskId:
			if a.TaskId < b.TaskId {
				return -1
			}
			return 1
		case a.IpAddress < b.IpAddress:
			return -1
		case a.IpAddress > b.IpAddress:
			return 1
		default:
			return 0
		}
	})

	return func(yield func(models.TargetIdentifier, models.TargetState) bool) {
		for _, id := range ids {
			if !yield(id, snapshot[id]) {
				return
			}
		}
	}, nil
}

func (s *Store) RemoveTargets(_ context.Context, ids []models.TargetIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		byLb := s.targets[id.LoadBalancerId]
		if byLb == nil {
			continue
		}
		delete(byLb, id)
		if len(byLb) == 0 {
			delete(s.targets, id.LoadBalancerId)
		}
	}
	return nil
}

var _ store.AssociationStore = (*Store)(nil)
