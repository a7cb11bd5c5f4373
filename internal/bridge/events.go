package bridge

import (
	"sync"

	"github.com/cbegin/keyfall-go/internal/engine"
)

// Hub fans lifecycle events out to subscribers. Publishing never blocks and
// never drops: each subscription is an unbounded mailbox plus a one-slot
// wake-up channel.
type Hub struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscription receives every event published after it was created.
type Subscription struct {
	hub    *Hub
	mu     sync.Mutex
	queue  []engine.Event
	notify chan struct{}
	closed bool
}

// Subscribe returns a new mailbox. After Close it returns one that is
// already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, notify: make(chan struct{}, 1)}
	h.mu.Lock()
	closed := h.closed
	if !closed {
		h.subs = append(h.subs, s)
	}
	h.mu.Unlock()
	if closed {
		s.close()
	}
	return s
}

// Publish delivers ev to every subscriber.
func (h *Hub) Publish(ev engine.Event) {
	h.mu.Lock()
	subs := h.subs
	h.mu.Unlock()
	for _, s := range subs {
		s.push(ev)
	}
}

// Close detaches every subscription and closes their notify channels.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.closed = true
	h.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
}

func (s *Subscription) push(ev engine.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	// Signal under mu so close cannot run between the check and the send.
	select {
	case s.notify <- struct{}{}:
	default:
		// A wake-up is already pending.
	}
	s.mu.Unlock()
}

// Ready fires after new events arrive. It is closed when the hub closes.
func (s *Subscription) Ready() <-chan struct{} {
	return s.notify
}

// Drain appends all queued events to dst in publish order.
func (s *Subscription) Drain(dst []engine.Event) []engine.Event {
	s.mu.Lock()
	dst = append(dst, s.queue...)
	clear(s.queue)
	s.queue = s.queue[:0]
	s.mu.Unlock()
	return dst
}

// Unsubscribe stops delivery to s.
func (s *Subscription) Unsubscribe() {
	h := s.hub
	h.mu.Lock()
	for i, sub := range h.subs {
		if sub == s {
			subs := make([]*Subscription, 0, len(h.subs)-1)
			subs = append(subs, h.subs[:i]...)
			h.subs = append(subs, h.subs[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.notify)
}
