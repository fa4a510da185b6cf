// Package eventstream implements the Event Stream of spec.md §4.4: a
// multi-producer, multi-consumer stream of TargetTransition, unbounded
// from the publisher's perspective so a slow downstream batcher never
// blocks the reconciler's tick loop. Late subscribers see only
// subsequent events. The stream never completes except on Close.
//
// Each subscriber gets its own unbounded FIFO queue, built the same way
// the teacher's Loop Driver builds its delayed-event queue
// (internal/reconciler/delay.go): a container/list guarded by a mutex,
// with a condition variable waking the reader instead of a fixed-size
// channel buffer.
package eventstream

import (
	"container/list"
	"sync"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// Stream fans out published transitions to every live subscription.
type Stream struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

func New() *Stream {
	return &Stream{subs: make(map[int]*subscription)}
}

// Publish fans out transition to every current subscriber. A no-op once
// the stream is closed.
func (s *Stream) Publish(transitions ...models.TargetTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, sub := range s.subs {
		sub.push(transitions)
	}
}

// Subscription is a per-consumer handle onto the stream.
type Subscription struct {
	stream *Stream
	id     int
	sub    *subscription
}

// Subscribe registers a new consumer, seeing only events published
// after this call returns.
func (s *Stream) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sub := newSubscription()
	s.subs[id] = sub
	return &Subscription{stream: s, id: id, sub: sub}
}

// Next blocks until a transition is available or the stream is closed,
// in which case ok is false.
func (sub *Subscription) Next() (models.TargetTransition, bool) {
	return sub.sub.next()
}

// Unsubscribe stops delivery to this subscription and releases its
// queue.
func (sub *Subscription) Unsubscribe() {
	sub.stream.mu.Lock()
	defer sub.stream.mu.Unlock()
	delete(sub.stream.subs, sub.id)
	sub.sub.close()
}

// Close shuts the stream down: every blocked and future Next call
// returns ok=false. Idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.close()
	}
}

type subscription struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *list.List
	closed bool
}

func newSubscription() *subscription {
	sub := &subscription{queue: list.New()}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

func (sub *subscription) push(transitions []models.TargetTransition) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	for _, t := range transitions {
		sub.queue.PushBack(t)
	}
	sub.cond.Signal()
}

func (sub *subscription) next() (models.TargetTransition, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	for sub.queue.Len() == 0 && !sub.closed {
		sub.cond.Wait()
	}
	if sub.queue.Len() == 0 {
		return models.TargetTransition{}, false
	}
	front := sub.queue.Front()
	sub.queue.Remove(front)
	return front.Value.(models.TargetTransition), true
}

func (sub *subscription) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.closed = true
	sub.cond.Broadcast()
}
