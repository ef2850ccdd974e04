// Package ipc implements the two in-memory facilities the data plane talks
// to over HTTP: the gateway configuration store and the broadcast event
// bus. Both are built on stdlib concurrency primitives in the same "small
// mutex-guarded map" idiom the signalbus package establishes;
// k8s.io/apimachinery/pkg/watch.Broadcaster is the nearest library
// primitive but queues unboundedly per watcher with no drop-on-overflow
// semantics, the opposite of what the bus needs (slow subscribers observe
// lag and reconnect).
package ipc

import (
	"context"
	"sync"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// busCapacity is the per-subscriber channel depth.
const busCapacity = 20

// Bus is a broadcast channel of Event: every Send fans out to every
// currently-subscribed Subscription. A subscription that falls behind
// drops further events until it reconnects -- the HTTP SSE handler treats
// that as a signal to close the stream so the client reconnects and
// refetches authoritative state.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: map[*Subscription]struct{}{}}
}

// Subscription is one subscriber's view of the bus: an independent,
// bounded channel of events plus a Lagged signal set once this subscriber
// has fallen behind and been dropped from future broadcasts.
type Subscription struct {
	bus     *Bus
	ch      chan Event
	filter  func(Event) bool
	lagged  chan struct{}
	lagOnce sync.Once
}

// Events returns the channel this subscription receives events on. The
// channel is never closed: Close only removes the subscription from the
// bus, and a lagging subscriber is reported through Lagged instead.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Lagged reports, via channel closure, that this subscriber fell behind
// and was dropped from the bus; callers (the SSE handler) should end the
// stream so the client reconnects and refetches authoritative state.
func (s *Subscription) Lagged() <-chan struct{} {
	return s.lagged
}

// Close cancels the subscription, removing it from the bus.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}

// Matches reports whether this subscription's filter wants ev. Filtering
// happens on the subscriber's side of the channel -- Send enqueues every
// event to every subscription -- so capacity backpressure is shared fairly
// across subscribers regardless of how narrow their filters are, and the
// filtering work runs in the subscriber task instead of serializing inside
// Send.
func (s *Subscription) Matches(ev Event) bool {
	return s.filter(ev)
}

// subscribe registers a new Subscription whose reads are narrowed by keep.
func (b *Bus) subscribe(keep func(Event) bool) *Subscription {
	s := &Subscription{
		bus:    b,
		ch:     make(chan Event, busCapacity),
		filter: keep,
		lagged: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// AllEvents subscribes to every event the bus carries.
func (b *Bus) AllEvents() *Subscription {
	return b.subscribe(func(Event) bool { return true })
}

// GatewayEvents subscribes to every Gateway-kind event.
func (b *Bus) GatewayEvents() *Subscription {
	return b.subscribe(func(Event) bool { return true })
}

// NamedGatewayEvents subscribes only to events for the named Gateway.
func (b *Bus) NamedGatewayEvents(ref objects.Ref) *Subscription {
	return b.subscribe(func(e Event) bool { return e.Ref == ref })
}

// Send publishes ev to every current subscriber. Subscribers apply their
// own filters on receipt (Matches / Next), not here. A subscriber whose
// channel is full is marked lagged and dropped from the bus rather than
// blocking Send or growing a backlog -- the same never-let-an-unbounded-
// queue-grow rule the reactive pipeline's signals follow, applied to the
// broadcast side.
func (b *Bus) Send(ev Event) {
	metrics.EventsPublishedTotal.WithLabelValues(ev.Kind.String()).Inc()

	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			s.lagOnce.Do(func() { close(s.lagged) })
			delete(b.subs, s)
		}
	}
}

// Next blocks until an event matching this subscription's filter arrives,
// discarding non-matching events as it goes. ok is false once the
// subscription has lagged and its buffered events are drained, or its
// channel is closed; err is non-nil only on
// context cancellation. Callers that interleave other select arms (the SSE
// handler's keep-alive ticker) read Events directly and apply Matches
// themselves instead.
func (s *Subscription) Next(ctx context.Context) (Event, bool, error) {
	for {
		select {
		case ev, ok := <-s.ch:
			if !ok {
				return Event{}, false, nil
			}
			if !s.filter(ev) {
				continue
			}
			return ev, true, nil
		case <-s.lagged:
			// Buffered events still drain before the lag is reported.
			select {
			case ev := <-s.ch:
				if !s.filter(ev) {
					continue
				}
				return ev, true, nil
			default:
			}
			return Event{}, false, nil
		case <-ctx.Done():
			return Event{}, false, ctx.Err()
		}
	}
}
