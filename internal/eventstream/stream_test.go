package eventstream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/eventstream"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

func transition(ip string) models.TargetTransition {
	return models.TargetTransition{
		Identifier:   models.TargetIdentifier{LoadBalancerId: "lb-1", TaskId: "task-1", IpAddress: models.IpAddress(ip)},
		DesiredState: models.Registered,
		Priority:     models.PriorityLow,
		Reason:       models.ReasonMissingInLb,
	}
}

func recvWithTimeout(t *testing.T, sub *eventstream.Subscription) (models.TargetTransition, bool) {
	t.Helper()
	type result struct {
		transition models.TargetTransition
		ok         bool
	}
	done := make(chan result, 1)
	go func() {
		tr, ok := sub.Next()
		done <- result{tr, ok}
	}()
	select {
	case r := <-done:
		return r.transition, r.ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Next()")
		return models.TargetTransition{}, false
	}
}

func TestStream_SingleSubscriberReceivesPublished(t *testing.T) {
	s := eventstream.New()
	sub := s.Subscribe()

	s.Publish(transition("1.1.1.1"))

	got, ok := recvWithTimeout(t, sub)
	require.True(t, ok)
	assert.Equal(t, models.IpAddress("1.1.1.1"), got.Identifier.IpAddress)
}

func TestStream_FanOutToMultipleSubscribers(t *testing.T) {
	s := eventstream.New()
	subA := s.Subscribe()
	subB := s.Subscribe()

	s.Publish(transition("1.1.1.1"))

	gotA, okA := recvWithTimeout(t, subA)
	gotB, okB := recvWithTimeout(t, subB)
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, gotA, gotB)
}

func TestStream_LateSubscriberSeesNothingPrior(t *testing.T) {
	s := eventstream.New()
	subA := s.Subscribe()
	s.Publish(transition("1.1.1.1"))
	_, _ = recvWithTimeout(t, subA)

	subB := s.Subscribe()
	s.Publish(transition("2.2.2.2"))

	got, ok := recvWithTimeout(t, subB)
	require.True(t, ok)
	assert.Equal(t, models.IpAddress("2.2.2.2"), got.Identifier.IpAddress)
}

func TestStream_QueuesMultipleEventsInOrder(t *testing.T) {
	s := eventstream.New()
	sub := s.Subscribe()

	s.Publish(transition("1.1.1.1"), transition("2.2.2.2"), transition("3.3.3.3"))

	for _, want := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		got, ok := recvWithTimeout(t, sub)
		require.True(t, ok)
		assert.Equal(t, models.IpAddress(want), got.Identifier.IpAddress)
	}
}

func TestStream_CloseUnblocksAllSubscribers(t *testing.T) {
	s := eventstream.New()
	subA := s.Subscribe()
	subB := s.Subscribe()

	s.Close()

	_, okA := recvWithTimeout(t, subA)
	_, okB := recvWithTimeout(t, subB)
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestStream_PublishAfterCloseIsNoop(t *testing.T) {
	s := eventstream.New()
	sub := s.Subscribe()
	s.Close()

	s.Publish(transition("1.1.1.1")) // must not panic or block

	_, ok := recvWithTimeout(t, sub)
	assert.False(t, ok)
}

func TestStream_UnsubscribeStopsDelivery(t *testing.T) {
	s := eventstream.New()
	sub := s.Subscribe()
	sub.Unsubscribe()

	s.Publish(transition("1.1.1.1")) // must not block Publish or panic

	_, ok := recvWithTimeout(t, sub)
	assert.False(t, ok, "an unsubscribed reader's Next unblocks with ok=false")
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	s := eventstream.New()
	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
}
