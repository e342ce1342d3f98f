package mailslot

import (
	"github.com/Mikepicker/mailslot/internal/event"
	"github.com/Mikepicker/mailslot/internal/logging"
)

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithBus attaches an event bus to the Registry. When set, an event is
// published after every completed open, release, write, read, and clear.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithLogger attaches a structured logger to the Registry. Without it,
// registry activity is not logged.
func WithLogger(log *logging.Logger) Option {
	return func(r *Registry) {
		r.log = log.WithComponent("registry")
	}
}

// WithPopOrder selects which stored message Read returns. The default
// is OrderLIFO; invalid values are ignored.
func WithPopOrder(order PopOrder) Option {
	return func(r *Registry) {
		if order.Valid() {
			r.order = order
		}
	}
}

// WithSizing overrides the registry's sizing: number of mailslots,
// messages per mailslot, and maximum message size in bytes.
// Non-positive values leave the corresponding default in place.
func WithSizing(instances, capacity, messageSize int) Option {
	return func(r *Registry) {
		if instances > 0 {
			r.instances = instances
		}
		if capacity > 0 {
			r.capacity = capacity
		}
		if messageSize > 0 {
			r.messageSize = messageSize
		}
	}
}
