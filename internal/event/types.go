// Package event defines event types for observing mailslot activity.
// The registry publishes an event for every completed lifecycle and
// message operation, letting the dispatch server, logging, and tests
// observe the registry without direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "mailslot.opened", "message.pushed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Mailslot Lifecycle Events
// -----------------------------------------------------------------------------

// MailslotOpenedEvent is emitted when a mailslot gains its opener.
type MailslotOpenedEvent struct {
	baseEvent
	Index     int // Mailslot index
	OpenCount int // Registry-wide open count after the open
}

// NewMailslotOpenedEvent creates a MailslotOpenedEvent.
func NewMailslotOpenedEvent(index, openCount int) MailslotOpenedEvent {
	return MailslotOpenedEvent{
		baseEvent: newBaseEvent("mailslot.opened"),
		Index:     index,
		OpenCount: openCount,
	}
}

// MailslotReleasedEvent is emitted when a mailslot's opener releases it.
// Stored messages survive the release; Occupied reports how many remain.
type MailslotReleasedEvent struct {
	baseEvent
	Index     int // Mailslot index
	OpenCount int // Registry-wide open count after the release
	Occupied  int // Messages still stored at release time
}

// NewMailslotReleasedEvent creates a MailslotReleasedEvent.
func NewMailslotReleasedEvent(index, openCount, occupied int) MailslotReleasedEvent {
	return MailslotReleasedEvent{
		baseEvent: newBaseEvent("mailslot.released"),
		Index:     index,
		OpenCount: openCount,
		Occupied:  occupied,
	}
}

// MailslotClearedEvent is emitted when a mailslot's stored messages are
// explicitly discarded via Clear.
type MailslotClearedEvent struct {
	baseEvent
	Index   int // Mailslot index
	Dropped int // Number of messages discarded
}

// NewMailslotClearedEvent creates a MailslotClearedEvent.
func NewMailslotClearedEvent(index, dropped int) MailslotClearedEvent {
	return MailslotClearedEvent{
		baseEvent: newBaseEvent("mailslot.cleared"),
		Index:     index,
		Dropped:   dropped,
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessagePushedEvent is emitted after a message is accepted by a mailslot.
type MessagePushedEvent struct {
	baseEvent
	Index    int // Mailslot index
	Size     int // Accepted message size in bytes
	Occupied int // Occupancy after the push
}

// NewMessagePushedEvent creates a MessagePushedEvent.
func NewMessagePushedEvent(index, size, occupied int) MessagePushedEvent {
	return MessagePushedEvent{
		baseEvent: newBaseEvent("message.pushed"),
		Index:     index,
		Size:      size,
		Occupied:  occupied,
	}
}

// MessagePoppedEvent is emitted after a message is removed from a mailslot.
type MessagePoppedEvent struct {
	baseEvent
	Index    int // Mailslot index
	Size     int // Size of the popped message in bytes
	Occupied int // Occupancy after the pop
}

// NewMessagePoppedEvent creates a MessagePoppedEvent.
func NewMessagePoppedEvent(index, size, occupied int) MessagePoppedEvent {
	return MessagePoppedEvent{
		baseEvent: newBaseEvent("message.popped"),
		Index:     index,
		Size:      size,
		Occupied:  occupied,
	}
}

// PushRejectedEvent is emitted when a push is refused. Reason is the
// sentinel error text ("mailslot full" or "message exceeds maximum size").
type PushRejectedEvent struct {
	baseEvent
	Index  int    // Mailslot index
	Size   int    // Size of the rejected message in bytes
	Reason string // Why the push was refused
}

// NewPushRejectedEvent creates a PushRejectedEvent.
func NewPushRejectedEvent(index, size int, reason string) PushRejectedEvent {
	return PushRejectedEvent{
		baseEvent: newBaseEvent("message.rejected"),
		Index:     index,
		Size:      size,
		Reason:    reason,
	}
}
