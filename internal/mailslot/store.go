package mailslot

import (
	"sync"
	"sync/atomic"

	"github.com/Mikepicker/mailslot/internal/errors"
)

// store is a single mailslot: a fixed-capacity arena of message slots
// indexed by an occupancy counter. Storage is allocated once at registry
// construction and recycled by later pushes; popped bytes are not erased
// until overwritten.
//
// The arena is addressed as a ring so FIFO pops do not shift slots. In
// LIFO mode head stays at 0 and live messages occupy slots [0, count) in
// push order, slot count-1 being the most recently pushed.
type store struct {
	index       int
	capacity    int
	messageSize int
	order       PopOrder

	guard *guard

	// stateMu protects opened against concurrent open/release. It is
	// deliberately separate from the guard so lifecycle calls never
	// contend with in-flight message operations.
	stateMu sync.Mutex
	opened  bool

	arena   []byte // capacity * messageSize bytes, one segment per slot
	lengths []int  // occupied length per slot
	head    int    // ring position of the oldest message, guard-held only

	// count is written only under the guard but read lock-free by
	// stats and event reporting.
	count atomic.Int32
}

func newStore(index, capacity, messageSize int, order PopOrder) *store {
	return &store{
		index:       index,
		capacity:    capacity,
		messageSize: messageSize,
		order:       order,
		guard:       newGuard(),
		arena:       make([]byte, capacity*messageSize),
		lengths:     make([]int, capacity),
	}
}

// slot returns the arena segment for a ring position.
func (s *store) slot(pos int) []byte {
	off := pos * s.messageSize
	return s.arena[off : off+s.messageSize]
}

// push copies msg into the next free slot. The caller must hold the
// guard. On rejection no state changes and the message is discarded.
func (s *store) push(msg []byte) error {
	if len(msg) > s.messageSize {
		return errors.ErrMessageTooLarge
	}

	count := int(s.count.Load())
	if count == s.capacity {
		return errors.ErrMailboxFull
	}

	pos := (s.head + count) % s.capacity
	copy(s.slot(pos), msg)
	s.lengths[pos] = len(msg)
	s.count.Store(int32(count + 1))
	return nil
}

// pop removes one message per the configured order and copies it into
// dst, truncating if dst is shorter than the message. The caller must
// hold the guard. Returns the copied length and whether a message was
// present; an empty store leaves the occupancy untouched.
func (s *store) pop(dst []byte) (int, bool) {
	count := int(s.count.Load())
	if count == 0 {
		return 0, false
	}

	var pos int
	switch s.order {
	case OrderFIFO:
		pos = s.head
		s.head = (s.head + 1) % s.capacity
	default: // OrderLIFO
		pos = (s.head + count - 1) % s.capacity
	}

	n := copy(dst, s.slot(pos)[:s.lengths[pos]])
	s.count.Store(int32(count - 1))
	return n, true
}

// clear discards all stored messages and returns how many were dropped.
// The caller must hold the guard. Slot bytes are left in place to be
// overwritten by later pushes, mirroring pop.
func (s *store) clear() int {
	dropped := int(s.count.Load())
	s.count.Store(0)
	s.head = 0
	return dropped
}

// occupied returns the live message count. Safe to call without the
// guard; the value may be stale by the time the caller uses it.
func (s *store) occupied() int {
	return int(s.count.Load())
}
