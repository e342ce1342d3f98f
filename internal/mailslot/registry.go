package mailslot

import (
	"context"
	"sync/atomic"

	"github.com/Mikepicker/mailslot/internal/errors"
	"github.com/Mikepicker/mailslot/internal/event"
	"github.com/Mikepicker/mailslot/internal/logging"
)

// Registry owns a fixed set of mailslots addressed by index. All
// mailslots are constructed once at registry creation; no mailslot is
// created or destroyed afterwards. The registry enforces single-opener
// exclusivity per index and tracks the aggregate open count.
type Registry struct {
	stores      []*store
	openCount   atomic.Int32
	order       PopOrder
	instances   int
	capacity    int
	messageSize int

	bus *event.Bus
	log *logging.Logger
}

// NewRegistry creates a Registry with all mailslots preallocated.
// Default sizing is 256 mailslots of 256 messages of 256 bytes; use
// options to change sizing, pop order, and observability.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		order:       OrderLIFO,
		instances:   DefaultInstances,
		capacity:    DefaultCapacity,
		messageSize: DefaultMessageSize,
		log:         logging.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.stores = make([]*store, r.instances)
	for i := range r.stores {
		r.stores[i] = newStore(i, r.capacity, r.messageSize, r.order)
	}
	return r
}

// Instances returns the number of mailslots in the registry.
func (r *Registry) Instances() int {
	return len(r.stores)
}

// Capacity returns the number of messages one mailslot holds.
func (r *Registry) Capacity() int {
	return r.capacity
}

// MessageSize returns the maximum message size in bytes.
func (r *Registry) MessageSize() int {
	return r.messageSize
}

// at resolves an index to its store.
func (r *Registry) at(index int) (*store, error) {
	if index < 0 || index >= len(r.stores) {
		return nil, errors.NewMailslotError("no such mailslot", errors.ErrIndexOutOfRange).
			WithIndex(index)
	}
	return r.stores[index], nil
}

// Open marks the mailslot as held by an opener. It fails with
// ErrCapacityExceeded if every mailslot were already counted open (a
// defensive check kept for adversarial callers) and with ErrAlreadyOpen
// if the target is held. Stored messages are unaffected.
func (r *Registry) Open(index int) error {
	s, err := r.at(index)
	if err != nil {
		return err
	}

	if int(r.openCount.Load()) >= len(r.stores) {
		return errors.NewMailslotError("open failed", errors.ErrCapacityExceeded).
			WithOp("open").WithIndex(index)
	}

	s.stateMu.Lock()
	if s.opened {
		s.stateMu.Unlock()
		return errors.NewMailslotError("open failed", errors.ErrAlreadyOpen).
			WithOp("open").WithIndex(index)
	}
	s.opened = true
	open := int(r.openCount.Add(1))
	s.stateMu.Unlock()

	r.log.WithMailslot(index).Debug("mailslot opened", "open_count", open)
	r.publish(event.NewMailslotOpenedEvent(index, open))
	return nil
}

// Release clears the opener mark. It fails with ErrNotOpen if the
// mailslot is not held, or if the aggregate open count is already zero
// (a defensive double-check). Stored messages are NOT cleared: a later
// opener sees everything pushed and unread so far.
func (r *Registry) Release(index int) error {
	s, err := r.at(index)
	if err != nil {
		return err
	}

	if r.openCount.Load() == 0 {
		return errors.NewMailslotError("release failed", errors.ErrNotOpen).
			WithOp("release").WithIndex(index)
	}

	s.stateMu.Lock()
	if !s.opened {
		s.stateMu.Unlock()
		return errors.NewMailslotError("release failed", errors.ErrNotOpen).
			WithOp("release").WithIndex(index)
	}
	s.opened = false
	open := int(r.openCount.Add(-1))
	s.stateMu.Unlock()

	r.log.WithMailslot(index).Debug("mailslot released", "open_count", open)
	r.publish(event.NewMailslotReleasedEvent(index, open, s.occupied()))
	return nil
}

// Write pushes msg into the mailslot under its guard and returns the
// accepted byte count. A full mailslot rejects the push with
// ErrMailboxFull and drops the message; an oversized msg is rejected
// with ErrMessageTooLarge before any copy. If ctx is cancelled while
// waiting for the guard, Write fails with ErrBusy. Write does not
// require the mailslot to be open.
func (r *Registry) Write(ctx context.Context, index int, msg []byte) (int, error) {
	s, err := r.at(index)
	if err != nil {
		return 0, err
	}

	if err := s.guard.acquire(ctx); err != nil {
		return 0, errors.NewMailslotError("guard wait abandoned", err).
			WithOp("write").WithIndex(index)
	}
	pushErr := s.push(msg)
	occupied := s.occupied()
	s.guard.release()

	if pushErr != nil {
		r.log.WithMailslot(index).Debug("push rejected", "size", len(msg), "reason", pushErr.Error())
		r.publish(event.NewPushRejectedEvent(index, len(msg), pushErr.Error()))
		return 0, errors.NewMailslotError("push rejected", pushErr).
			WithOp("write").WithIndex(index)
	}

	r.log.WithMailslot(index).Debug("message pushed", "size", len(msg), "occupied", occupied)
	r.publish(event.NewMessagePushedEvent(index, len(msg), occupied))
	return len(msg), nil
}

// Read pops one message from the mailslot under its guard, copying it
// into dst (truncated to len(dst) if the caller's buffer is smaller).
// The bool result reports whether a message was present: an empty
// mailslot yields (0, false, nil), not an error, and its occupancy is
// unchanged. If ctx is cancelled while waiting for the guard, Read
// fails with ErrBusy. Read does not require the mailslot to be open.
func (r *Registry) Read(ctx context.Context, index int, dst []byte) (int, bool, error) {
	s, err := r.at(index)
	if err != nil {
		return 0, false, err
	}

	if err := s.guard.acquire(ctx); err != nil {
		return 0, false, errors.NewMailslotError("guard wait abandoned", err).
			WithOp("read").WithIndex(index)
	}
	n, ok := s.pop(dst)
	occupied := s.occupied()
	s.guard.release()

	if !ok {
		r.log.WithMailslot(index).Debug("no message to read")
		return 0, false, nil
	}

	r.log.WithMailslot(index).Debug("message popped", "size", n, "occupied", occupied)
	r.publish(event.NewMessagePoppedEvent(index, n, occupied))
	return n, true, nil
}

// Clear discards every stored message in the mailslot under its guard
// and returns how many were dropped. Clear is never invoked by Release;
// discarding contents is always an explicit caller decision.
func (r *Registry) Clear(ctx context.Context, index int) (int, error) {
	s, err := r.at(index)
	if err != nil {
		return 0, err
	}

	if err := s.guard.acquire(ctx); err != nil {
		return 0, errors.NewMailslotError("guard wait abandoned", err).
			WithOp("clear").WithIndex(index)
	}
	dropped := s.clear()
	s.guard.release()

	r.log.WithMailslot(index).Debug("mailslot cleared", "dropped", dropped)
	r.publish(event.NewMailslotClearedEvent(index, dropped))
	return dropped, nil
}

// Occupancy returns the mailslot's stored message count. The value is a
// snapshot and may be stale by the time the caller uses it.
func (r *Registry) Occupancy(index int) (int, error) {
	s, err := r.at(index)
	if err != nil {
		return 0, err
	}
	return s.occupied(), nil
}

// Stats returns registry-wide counters.
func (r *Registry) Stats() Stats {
	total := 0
	for _, s := range r.stores {
		total += s.occupied()
	}
	return Stats{
		Instances:   len(r.stores),
		Capacity:    r.capacity,
		MessageSize: r.messageSize,
		OpenCount:   int(r.openCount.Load()),
		Messages:    total,
	}
}

// Snapshot returns the per-mailslot state of every mailslot that is
// currently open or non-empty, in index order.
func (r *Registry) Snapshot() []MailslotStat {
	var stats []MailslotStat
	for _, s := range r.stores {
		s.stateMu.Lock()
		opened := s.opened
		s.stateMu.Unlock()

		occupied := s.occupied()
		if opened || occupied > 0 {
			stats = append(stats, MailslotStat{Index: s.index, Opened: opened, Occupied: occupied})
		}
	}
	return stats
}

// publish sends an event if a bus is attached.
func (r *Registry) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
