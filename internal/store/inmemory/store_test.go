package inmemory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/store/inmemory"
)

func TestStore_AssociationUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	key := models.AssociationKey{JobId: "job-1", LoadBalancerId: "lb-1"}
	require.NoError(t, s.PutAssociation(ctx, key, models.Associated))

	assocs, err := s.GetAssociations(ctx)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, models.Associated, assocs[0].State)

	require.NoError(t, s.PutAssociation(ctx, key, models.Dissociated))
	assocs, err = s.GetAssociations(ctx)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, models.Dissociated, assocs[0].State, "PutAssociation overwrites, it does not duplicate")

	require.NoError(t, s.RemoveAssociation(ctx, key))
	assocs, err = s.GetAssociations(ctx)
	require.NoError(t, err)
	assert.Empty(t, assocs)
}

func TestStore_GetAssociationsSortedByJobThenLb(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-b", LoadBalancerId: "lb-1"}, models.Associated))
	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-a", LoadBalancerId: "lb-2"}, models.Associated))
	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-a", LoadBalancerId: "lb-1"}, models.Associated))

	assocs, err := s.GetAssociations(ctx)
	require.NoError(t, err)
	require.Len(t, assocs, 3)
	assert.Equal(t, models.JobId("job-a"), assocs[0].Key.JobId)
	assert.Equal(t, models.LoadBalancerId("lb-1"), assocs[0].Key.LoadBalancerId)
	assert.Equal(t, models.JobId("job-a"), assocs[1].Key.JobId)
	assert.Equal(t, models.LoadBalancerId("lb-2"), assocs[1].Key.LoadBalancerId)
	assert.Equal(t, models.JobId("job-b"), assocs[2].Key.JobId)
}

func TestStore_GetAssociatedLoadBalancersForJobFiltersDissociated(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-1", LoadBalancerId: "lb-1"}, models.Associated))
	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-1", LoadBalancerId: "lb-2"}, models.Dissociated))
	require.NoError(t, s.PutAssociation(ctx, models.AssociationKey{JobId: "job-2", LoadBalancerId: "lb-3"}, models.Associated))

	lbs, err := s.GetAssociatedLoadBalancersForJob(ctx, "job-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.LoadBalancerId{"lb-1"}, lbs)
}

func TestStore_TargetsUpsertSortedAndRemove(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	lbId := models.LoadBalancerId("lb-1")
	idB2 := models.TargetIdentifier{LoadBalancerId: lbId, TaskId: "task-b", IpAddress: "2.2.2.2"}
	idA1 := models.TargetIdentifier{LoadBalancerId: lbId, TaskId: "task-a", IpAddress: "1.1.1.1"}
	idA2 := models.TargetIdentifier{LoadBalancerId: lbId, TaskId: "task-a", IpAddress: "2.2.2.2"}

	require.NoError(t, s.PutTargets(ctx, []models.TargetRecord{
		{Identifier: idB2, State: models.Registered},
		{Identifier: idA1, State: models.Registered},
		{Identifier: idA2, State: models.Deregistered},
	}))

	seq, err := s.GetTargets(ctx, lbId)
	require.NoError(t, err)

	var ids []models.TargetIdentifier
	for id := range seq {
		ids = append(ids, id)
	}
	require.Equal(t, []models.TargetIdentifier{idA1, idA2, idB2}, ids, "targets are ordered by task then ip")

	require.NoError(t, s.RemoveTargets(ctx, []models.TargetIdentifier{idA1}))
	seq, err = s.GetTargets(ctx, lbId)
	require.NoError(t, err)
	ids = nil
	for id := range seq {
		ids = append(ids, id)
	}
	assert.Equal(t, []models.TargetIdentifier{idA2, idB2}, ids)
}

func TestStore_GetTargetsUnknownLbReturnsEmptySequence(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	seq, err := s.GetTargets(ctx, "lb-nonexistent")
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
	}
	assert.Zero(t, count)
}

func TestStore_GetTargetsSequenceStopsOnFalse(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New()

	lbId := models.LoadBalancerId("lb-1")
	require.NoError(t, s.PutTargets(ctx, []models.TargetRecord{
		{Identifier: models.TargetIdentifier{LoadBalancerId: lbId, TaskId: "task-a", IpAddress: "1.1.1.1"}, State: models.Registered},
		{Identifier: models.TargetIdentifier{LoadBalancerId: lbId, TaskId: "task-b", IpAddress: "2.2.2.2"}, State: models.Registered},
	}))

	seq, err := s.GetTargets(ctx, lbId)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}
