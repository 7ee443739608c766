package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/spacecore/spacecore/internal/logger"
)

// DefaultSubscriberBuffer is the default bounded channel size for a
// subscriber that does not request a specific capacity.
const DefaultSubscriberBuffer = 256

// Filter decides whether a subscriber wants a given event. A nil filter
// accepts everything.
type Filter func(Event) bool

// Subscription is a live registration on the Bus. Events() yields the
// subscriber's bounded channel; Close unregisters it.
type Subscription struct {
	id     uint64
	bus    *Bus
	events chan Event
	filter Filter

	dropped atomic.Uint64
}

// Events returns the channel this subscription receives events on.
func (s *Subscription) Events() <-chan Event { return s.events }

// Dropped returns the count of events dropped because this subscriber's
// buffer was full when they were published.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel. Safe to
// call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus is an in-process typed broadcast: every Publish is fanned out to
// every live Subscription's bounded channel. A slow subscriber cannot
// block emitters — when its buffer is full, the oldest queued event is
// dropped to make room for the new one.
//
// The sync engine does not rely on Bus for durability; it subscribes
// like any other observer but re-queues what it receives onto its own
// durable, disk-backed buffer so a restart does not lose live events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscription with the given buffer size (or
// DefaultSubscriberBuffer if bufferSize <= 0) and optional filter.
func (b *Bus) Subscribe(bufferSize int, filter Filter) *Subscription {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		bus:    b,
		events: make(chan Event, bufferSize),
		filter: filter,
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.events)
	}
}

// Publish broadcasts ev to every subscriber whose filter accepts it.
// Publish never blocks: a full subscriber channel has its oldest pending
// event evicted to make room.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *Subscription, ev Event) {
	select {
	case sub.events <- ev:
		return
	default:
	}

	// Buffer full: drop the oldest queued event and retry once.
	select {
	case <-sub.events:
		sub.dropped.Add(1)
		logger.Warn("eventbus: dropping oldest event for slow subscriber", "kind", ev.Kind)
	default:
	}

	select {
	case sub.events <- ev:
	default:
		// Another publisher won the race for the freed slot; drop ev too.
		sub.dropped.Add(1)
	}
}

// SubscriberCount returns the number of live subscriptions, for metrics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
