// Package mailslot implements the mailslot registry: a fixed set of
// numbered, bounded message mailboxes with single-opener exclusivity and
// per-mailslot mutual exclusion.
//
// A mailslot is addressed by a small integer index, holds up to a fixed
// number of messages of bounded size, and admits at most one opener at a
// time. Message storage is preallocated for the registry's lifetime;
// pops recycle slot storage rather than freeing it.
//
// # Architecture
//
//   - [Registry]: owns all mailslots, validates indices, enforces
//     single-opener exclusivity, and tracks the aggregate open count.
//     This is the entry point external dispatch layers call into.
//   - store (unexported): one mailslot's slot arena and push/pop logic.
//   - guard (unexported): per-mailslot mutual exclusion with cancellable
//     acquisition. At most one Read, Write, or Clear is inside a given
//     mailslot's critical section at any instant.
//
// # Semantics
//
// Pop order is LIFO by default: Read returns the most recently pushed
// message. FIFO order is available as an explicit opt-in via
// [WithPopOrder]. Pushes against a full mailslot are rejected and the
// message is discarded; pops from an empty mailslot return a non-error
// empty result. Release does not clear stored messages; a reopened
// mailslot still holds whatever was pushed before. [Registry.Clear]
// discards contents explicitly.
//
// Read and Write require only the guard, not an open session. Callers
// that want open-before-use discipline enforce it a layer above (the
// dispatch server does).
//
// # Basic Usage
//
//	reg := mailslot.NewRegistry()
//
//	if err := reg.Open(7); err != nil { ... }
//
//	n, err := reg.Write(ctx, 7, []byte("hello"))
//
//	buf := make([]byte, mailslot.DefaultMessageSize)
//	n, ok, err := reg.Read(ctx, 7, buf)
//	if err == nil && !ok {
//	    // mailslot 7 is empty
//	}
//
//	_ = reg.Release(7)
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Different indices
// are fully independent: no global lock is held during a mailslot's
// critical section. Guard acquisition carries no fairness guarantee;
// waiters are not ordered by arrival time.
package mailslot
