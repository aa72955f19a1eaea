package events

import (
	"sync"

	"github.com/greenloop/binsim/internal/bin"
)

// Event names carried over the socket surface.
const (
	BinList     = "bin:list"
	BinUpdate   = "bin:update"
	BinDetailed = "bin:detailed"
	BinDeleted  = "bin:deleted"
)

// Event is a bin-state change delivered to subscribers. Bin is nil for
// deletion events, which carry only the id.
type Event struct {
	Name  string
	BinID string
	Bin   *bin.Bin
}

// Bus is a simple in-memory pub/sub with per-bin rooms layered on top of
// global fan-out. Sends are non-blocking: a subscriber whose buffer is full
// misses the event rather than stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	ch     chan Event
	topics map[string]struct{}
}

func NewBus() *Bus { return &Bus{subs: make(map[int]*subscriber)} }

// Subscription is a live attachment to the bus. Cancel releases it and
// closes C; Join/Leave manage per-bin room membership.
type Subscription struct {
	C   <-chan Event
	bus *Bus
	id  int
}

func (b *Bus) Subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	s := &subscriber{ch: make(chan Event, buffer), topics: make(map[string]struct{})}
	b.subs[id] = s
	return &Subscription{C: s.ch, bus: b, id: id}
}

// Join adds the subscription to a bin's room. Joining twice is a no-op.
func (s *Subscription) Join(binID string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subs[s.id]; ok {
		sub.topics[binID] = struct{}{}
	}
}

// Leave removes room membership; leaving a room never joined is a no-op.
func (s *Subscription) Leave(binID string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subs[s.id]; ok {
		delete(sub.topics, binID)
	}
}

// Cancel detaches the subscription and closes its channel. Idempotent.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(sub.ch)
	}
}

// PublishGlobal delivers e to every subscriber.
func (b *Bus) PublishGlobal(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default: /* drop if full */
		}
	}
}

// PublishTopic delivers e only to subscribers in the bin's room.
func (b *Bus) PublishTopic(binID string, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if _, member := sub.topics[binID]; !member {
			continue
		}
		select {
		case sub.ch <- e:
		default: /* drop if full */
		}
	}
}
