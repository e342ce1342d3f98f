package event

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles an event.
type Handler func(Event)

// subscriber is a registered handler together with its unsubscribe token.
type subscriber struct {
	id      string
	handler Handler
}

// wildcard is the pseudo event type matched by SubscribeAll handlers.
const wildcard = "*"

// Bus is a simple synchronous pub-sub event bus. Publishing happens on
// the caller's goroutine; handlers must not block. It allows the
// registry, dispatch server, and CLI to communicate without direct
// dependencies.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]subscriber // event type -> subscribers
	tokenSeq atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscriber),
	}
}

// Subscribe registers a handler for a specific event type.
// Returns a token that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := fmt.Sprintf("sub-%d", b.tokenSeq.Add(1))
	b.subs[eventType] = append(b.subs[eventType], subscriber{id: token, handler: handler})
	return token
}

// SubscribeAll registers a handler for every event type.
// Returns a token that can be used to unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by token.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == token {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers. Handlers
// subscribed to the event's type run first, then wildcard handlers, each
// group in registration order. A panicking handler is recovered and
// logged so it cannot block delivery to the remaining handlers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	targets := make([]subscriber, 0, len(b.subs[event.EventType()])+len(b.subs[wildcard]))
	targets = append(targets, b.subs[event.EventType()]...)
	targets = append(targets, b.subs[wildcard]...)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.safeCall(sub.handler, event)
	}
}

// safeCall invokes a handler and recovers from any panic, logging the
// stack trace to aid debugging.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscriber)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subs {
		count += len(subs)
	}
	return count
}
