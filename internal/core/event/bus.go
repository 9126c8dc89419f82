package event

import (
	"context"
	"sync"
)

// Bus fans out progress events to live subscribers, one FIFO queue per
// subscriber. Events published to a stream with no subscribers are dropped;
// there is no replay. Closing a stream delivers an end-of-stream marker to
// every subscriber and is remembered, so a late subscriber sees only the
// connect event before its subscription ends.
type Bus struct {
	mu      sync.Mutex
	streams map[string][]*Subscription
	closed  map[string]struct{}
}

func NewBus() *Bus {
	return &Bus{
		streams: make(map[string][]*Subscription),
		closed:  make(map[string]struct{}),
	}
}

// Subscribe registers a new subscription on streamID. The connect event is
// already queued when Subscribe returns.
func (b *Bus) Subscribe(streamID string) *Subscription {
	sub := &Subscription{notify: make(chan struct{}, 1)}
	sub.push(Connected())

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, done := b.closed[streamID]; done {
		sub.end()
		return sub
	}
	b.streams[streamID] = append(b.streams[streamID], sub)
	return sub
}

// Unsubscribe removes a subscription from streamID. Safe to call after Close.
func (b *Bus) Unsubscribe(streamID string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.streams[streamID]
	for i, s := range subs {
		if s == sub {
			b.streams[streamID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.streams[streamID]) == 0 {
		delete(b.streams, streamID)
	}
}

// Publish delivers ev to every current subscriber of streamID and returns the
// number of recipients. Publishing to an unknown stream is a no-op.
func (b *Bus) Publish(streamID string, ev StreamEvent) int {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.streams[streamID]))
	copy(subs, b.streams[streamID])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.push(ev)
	}
	return len(subs)
}

// Close terminates streamID: every subscriber receives an end-of-stream marker
// after any already-queued events, and the stream is remembered as closed.
func (b *Bus) Close(streamID string) {
	b.mu.Lock()
	subs := b.streams[streamID]
	delete(b.streams, streamID)
	b.closed[streamID] = struct{}{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.end()
	}
}

// Forget drops the closed-stream marker for streamID. Called when the job
// record itself is removed.
func (b *Bus) Forget(streamID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.closed, streamID)
}

func (b *Bus) HasSubscribers(streamID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[streamID]) > 0
}

// Subscription is an unbounded ordered queue of events for one subscriber.
type Subscription struct {
	mu     sync.Mutex
	queue  []StreamEvent
	done   bool
	notify chan struct{}
}

func (s *Subscription) push(ev StreamEvent) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) end() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the stream ends, or ctx is done.
// The second return value is false once the stream has ended: queued events
// are drained first, then the subscription reports closed.
func (s *Subscription) Next(ctx context.Context) (StreamEvent, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, true
		}
		if s.done {
			s.mu.Unlock()
			return StreamEvent{}, false
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return StreamEvent{}, false
		case <-s.notify:
		}
	}
}
