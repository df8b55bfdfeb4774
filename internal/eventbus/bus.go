// Package eventbus implements the in-process publish/subscribe channel
// described in spec.md §4.6: events are keyed by job id, plus a global
// "__all__" channel, with best-effort non-blocking delivery.
//
// Grounded on the teacher's internal/api/websocket_hub.go: a mutex-guarded
// subscriber map, snapshot-under-lock then deliver-outside-lock to avoid
// head-of-line blocking, and a non-blocking send that drops for slow
// subscribers instead of stalling the publisher.
package eventbus

import (
	"sync"
	"time"

	"github.com/rowforge/tabular-import/internal/domain"
)

// allKey is the global channel every subscription without a job id also
// joins implicitly (spec.md §4.6: "every subscription on __all__").
const allKey = "__all__"

// subscriberQueueSize bounds the per-subscriber channel. A slow consumer
// drops events rather than blocking the publisher (spec.md §5).
const subscriberQueueSize = 256

// Bus is a process-local, concurrency-safe event fan-out keyed by job id.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// New creates an empty Bus. The Bus is process-wide state: construct one
// instance and share it between the worker and the SSE transport (spec.md
// §9 "Process-wide state").
func New() *Bus {
	return &Bus{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is a subscriber's handle onto the Bus. Next blocks up to a
// timeout for the following event (spec.md §4.6 "subscribe... next(timeout)").
type Subscription struct {
	bus   *Bus
	jobID string
	ch    chan domain.Event
}

// Subscribe creates a bounded queue listening for events on jobID (or the
// global channel if jobID is empty).
func (b *Bus) Subscribe(jobID string) *Subscription {
	key := jobID
	if key == "" {
		key = allKey
	}

	sub := &Subscription{bus: b, jobID: key, ch: make(chan domain.Event, subscriberQueueSize)}

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[*Subscription]struct{})
	}
	b.subs[key][sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Next waits up to timeout for the next event. ok is false on timeout.
func (s *Subscription) Next(timeout time.Duration) (domain.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt, open := <-s.ch:
		if !open {
			return domain.Event{}, false
		}
		return evt, true
	case <-timer.C:
		return domain.Event{}, false
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	if set, ok := s.bus.subs[s.jobID]; ok {
		if _, present := set[s]; present {
			delete(set, s)
			close(s.ch)
		}
		if len(set) == 0 {
			delete(s.bus.subs, s.jobID)
		}
	}
	s.bus.mu.Unlock()
}

// Publish delivers an event to every subscription on jobID and every
// subscription on the global channel. Delivery is best-effort non-blocking:
// a full subscriber queue drops the event for that subscriber only.
func (b *Bus) Publish(jobID string, eventType domain.EventType, data any) {
	evt := domain.Event{JobID: jobID, Type: eventType, Data: data, CreatedAt: time.Now()}

	b.mu.Lock()
	targets := make([]*Subscription, 0, 4)
	if set, ok := b.subs[jobID]; ok {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	if set, ok := b.subs[allKey]; ok {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- evt:
		default:
			// subscriber's consumer is slow or gone; drop for this one.
		}
	}
}

// Close unregisters all subscriptions. Intended for process shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, key)
	}
}
