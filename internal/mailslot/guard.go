package mailslot

import (
	"context"

	"github.com/Mikepicker/mailslot/internal/errors"
)

// guard serializes message operations against one mailslot. It is a
// 1-buffered channel semaphore: acquisition blocks until the holder
// releases, and a waiter can abandon the wait through its context.
// Waiters are not ordered; whoever wins the send proceeds.
type guard struct {
	ch chan struct{}
}

func newGuard() *guard {
	return &guard{ch: make(chan struct{}, 1)}
}

// acquire obtains the guard, blocking until it is free. If ctx is
// cancelled first, the wait is abandoned and ErrBusy is returned.
func (g *guard) acquire(ctx context.Context) error {
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.ErrBusy
	}
}

// tryAcquire obtains the guard without blocking.
func (g *guard) tryAcquire() bool {
	select {
	case g.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// release frees the guard. Calling release without holding the guard is
// a programming error.
func (g *guard) release() {
	select {
	case <-g.ch:
	default:
		panic("mailslot: release of unheld guard")
	}
}
