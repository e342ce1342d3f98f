package mailslot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Mikepicker/mailslot/internal/errors"
	"github.com/Mikepicker/mailslot/internal/event"
)

func testRegistry(opts ...Option) *Registry {
	base := []Option{WithSizing(8, 4, 16)}
	return NewRegistry(append(base, opts...)...)
}

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()

	if r.Instances() != DefaultInstances {
		t.Errorf("Instances() = %d, want %d", r.Instances(), DefaultInstances)
	}
	stats := r.Stats()
	if stats.Capacity != DefaultCapacity || stats.MessageSize != DefaultMessageSize {
		t.Errorf("Stats() sizing = %+v, want defaults", stats)
	}
	if stats.OpenCount != 0 || stats.Messages != 0 {
		t.Errorf("fresh registry stats = %+v, want zero counters", stats)
	}
}

func TestRegistry_OpenTwiceYieldsAlreadyOpen(t *testing.T) {
	r := testRegistry()

	for i := 0; i < r.Instances(); i++ {
		if err := r.Open(i); err != nil {
			t.Fatalf("Open(%d) error = %v", i, err)
		}
		err := r.Open(i)
		if !errors.Is(err, errors.ErrAlreadyOpen) {
			t.Fatalf("second Open(%d) error = %v, want ErrAlreadyOpen", i, err)
		}
		if err := r.Release(i); err != nil {
			t.Fatalf("Release(%d) error = %v", i, err)
		}
	}
}

func TestRegistry_ReleaseWithoutOpenYieldsNotOpen(t *testing.T) {
	r := testRegistry()

	for i := 0; i < r.Instances(); i++ {
		err := r.Release(i)
		if !errors.Is(err, errors.ErrNotOpen) {
			t.Fatalf("Release(%d) error = %v, want ErrNotOpen", i, err)
		}
	}

	// Open one, release twice: second must fail.
	if err := r.Open(2); err != nil {
		t.Fatalf("Open(2) error = %v", err)
	}
	if err := r.Release(2); err != nil {
		t.Fatalf("Release(2) error = %v", err)
	}
	if err := r.Release(2); !errors.Is(err, errors.ErrNotOpen) {
		t.Errorf("double Release(2) error = %v, want ErrNotOpen", err)
	}
}

func TestRegistry_IndexOutOfRange(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()
	buf := make([]byte, 16)

	for _, index := range []int{-1, r.Instances(), r.Instances() + 100} {
		if err := r.Open(index); !errors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("Open(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
		if err := r.Release(index); !errors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("Release(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
		if _, err := r.Write(ctx, index, []byte("x")); !errors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("Write(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
		if _, _, err := r.Read(ctx, index, buf); !errors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("Read(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestRegistry_CapacityExceeded(t *testing.T) {
	r := NewRegistry(WithSizing(2, 4, 16))

	if err := r.Open(0); err != nil {
		t.Fatalf("Open(0) error = %v", err)
	}
	if err := r.Open(1); err != nil {
		t.Fatalf("Open(1) error = %v", err)
	}

	// Every mailslot is open; the defensive capacity check fires before
	// the per-mailslot opened check.
	err := r.Open(0)
	if !errors.Is(err, errors.ErrCapacityExceeded) {
		t.Errorf("Open with all mailslots open error = %v, want ErrCapacityExceeded", err)
	}
}

func TestRegistry_WriteRead_LIFODefault(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		n, err := r.Write(ctx, 3, []byte(msg))
		if err != nil {
			t.Fatalf("Write(%q) error = %v", msg, err)
		}
		if n != len(msg) {
			t.Errorf("Write(%q) = %d, want %d", msg, n, len(msg))
		}
	}

	buf := make([]byte, 16)
	for _, want := range []string{"c", "b", "a"} {
		n, ok, err := r.Read(ctx, 3, buf)
		if err != nil || !ok {
			t.Fatalf("Read() = (%d, %v, %v), want message %q", n, ok, err, want)
		}
		if got := string(buf[:n]); got != want {
			t.Errorf("Read() = %q, want %q", got, want)
		}
	}

	// Drained: empty indicator, not an error.
	n, ok, err := r.Read(ctx, 3, buf)
	if err != nil || ok || n != 0 {
		t.Errorf("Read() on empty = (%d, %v, %v), want (0, false, nil)", n, ok, err)
	}
}

func TestRegistry_WriteRead_FIFOMode(t *testing.T) {
	r := testRegistry(WithPopOrder(OrderFIFO))
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		if _, err := r.Write(ctx, 0, []byte(msg)); err != nil {
			t.Fatalf("Write(%q) error = %v", msg, err)
		}
	}

	buf := make([]byte, 16)
	for _, want := range []string{"a", "b", "c"} {
		n, ok, err := r.Read(ctx, 0, buf)
		if err != nil || !ok {
			t.Fatalf("Read() = (%d, %v, %v), want message %q", n, ok, err, want)
		}
		if got := string(buf[:n]); got != want {
			t.Errorf("Read() = %q, want %q", got, want)
		}
	}
}

func TestRegistry_WriteReadWithoutOpen(t *testing.T) {
	// Push/pop require only the guard, not an open session.
	r := testRegistry()
	ctx := context.Background()

	if _, err := r.Write(ctx, 5, []byte("unopened")); err != nil {
		t.Fatalf("Write without Open error = %v", err)
	}
	buf := make([]byte, 16)
	n, ok, err := r.Read(ctx, 5, buf)
	if err != nil || !ok || string(buf[:n]) != "unopened" {
		t.Errorf("Read without Open = (%q, %v, %v)", buf[:n], ok, err)
	}
}

func TestRegistry_ReleasePreservesMessages(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	if err := r.Open(1); err != nil {
		t.Fatalf("Open error = %v", err)
	}
	if _, err := r.Write(ctx, 1, []byte("survivor")); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if err := r.Release(1); err != nil {
		t.Fatalf("Release error = %v", err)
	}

	// Reopen: the previously pushed, unread message is still there.
	if err := r.Open(1); err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	buf := make([]byte, 16)
	n, ok, err := r.Read(ctx, 1, buf)
	if err != nil || !ok || string(buf[:n]) != "survivor" {
		t.Errorf("Read after reopen = (%q, %v, %v), want survivor", buf[:n], ok, err)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Write(ctx, 2, []byte("x")); err != nil {
			t.Fatalf("Write error = %v", err)
		}
	}

	dropped, err := r.Clear(ctx, 2)
	if err != nil {
		t.Fatalf("Clear error = %v", err)
	}
	if dropped != 3 {
		t.Errorf("Clear() = %d, want 3", dropped)
	}
	if occ, _ := r.Occupancy(2); occ != 0 {
		t.Errorf("Occupancy after Clear = %d, want 0", occ)
	}
}

func TestRegistry_FullMailslotRejectsPush(t *testing.T) {
	r := testRegistry() // capacity 4
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := r.Write(ctx, 0, fmt.Appendf(nil, "m%d", i)); err != nil {
			t.Fatalf("Write %d error = %v", i, err)
		}
	}

	_, err := r.Write(ctx, 0, []byte("overflow"))
	if !errors.Is(err, errors.ErrMailboxFull) {
		t.Fatalf("Write on full mailslot error = %v, want ErrMailboxFull", err)
	}

	// Stored set unchanged by the rejected push.
	buf := make([]byte, 16)
	for i := 3; i >= 0; i-- {
		n, ok, err := r.Read(ctx, 0, buf)
		if err != nil || !ok {
			t.Fatalf("Read error = %v ok = %v", err, ok)
		}
		if got, want := string(buf[:n]), fmt.Sprintf("m%d", i); got != want {
			t.Errorf("Read() = %q, want %q", got, want)
		}
	}
}

func TestRegistry_OversizedWriteRejected(t *testing.T) {
	r := testRegistry() // message size 16
	ctx := context.Background()

	_, err := r.Write(ctx, 0, []byte("this message is longer than sixteen bytes"))
	if !errors.Is(err, errors.ErrMessageTooLarge) {
		t.Fatalf("oversized Write error = %v, want ErrMessageTooLarge", err)
	}
	if occ, _ := r.Occupancy(0); occ != 0 {
		t.Errorf("Occupancy after rejected write = %d, want 0", occ)
	}
}

func TestRegistry_BusyOnHeldGuard(t *testing.T) {
	r := testRegistry()

	// Hold the guard directly, then issue a Write with a short deadline.
	s := r.stores[4]
	if !s.guard.tryAcquire() {
		t.Fatal("tryAcquire failed on fresh guard")
	}
	defer s.guard.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Write(ctx, 4, []byte("blocked"))
	if !errors.Is(err, errors.ErrBusy) {
		t.Errorf("Write with held guard error = %v, want ErrBusy", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("ErrBusy should classify as retryable")
	}

	_, _, err = r.Read(ctx, 4, make([]byte, 16))
	if !errors.Is(err, errors.ErrBusy) {
		t.Errorf("Read with held guard error = %v, want ErrBusy", err)
	}
}

func TestRegistry_ConcurrentWritersRespectCapacity(t *testing.T) {
	const writers = 32
	const capacity = 8

	r := NewRegistry(WithSizing(2, capacity, 64))
	ctx := context.Background()

	var wg sync.WaitGroup
	var accepted, rejected sync.Map
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			msg := fmt.Appendf(nil, "writer-%02d", id)
			_, err := r.Write(ctx, 0, msg)
			switch {
			case err == nil:
				accepted.Store(id, string(msg))
			case errors.Is(err, errors.ErrMailboxFull):
				rejected.Store(id, true)
			default:
				t.Errorf("Write error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	countMap := func(m *sync.Map) int {
		n := 0
		m.Range(func(any, any) bool { n++; return true })
		return n
	}
	if got := countMap(&accepted); got != capacity {
		t.Errorf("accepted writes = %d, want %d", got, capacity)
	}
	if got := countMap(&rejected); got != writers-capacity {
		t.Errorf("rejected writes = %d, want %d", got, writers-capacity)
	}

	// Every accepted payload must be recoverable intact.
	want := map[string]bool{}
	accepted.Range(func(_, v any) bool { want[v.(string)] = true; return true })

	buf := make([]byte, 64)
	for i := 0; i < capacity; i++ {
		n, ok, err := r.Read(ctx, 0, buf)
		if err != nil || !ok {
			t.Fatalf("Read %d = (%v, %v)", i, ok, err)
		}
		got := string(buf[:n])
		if !want[got] {
			t.Errorf("popped unexpected or corrupted payload %q", got)
		}
		delete(want, got)
	}
	if len(want) != 0 {
		t.Errorf("accepted payloads never recovered: %v", want)
	}
}

func TestRegistry_IndexIsolation(t *testing.T) {
	r := NewRegistry(WithSizing(8, 64, 32))
	ctx := context.Background()

	// Concurrent interleaved traffic on mailslots 5 and 6: neither may
	// observe the other's messages or counters.
	var wg sync.WaitGroup
	for _, index := range []int{5, 6} {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := r.Write(ctx, idx, fmt.Appendf(nil, "slot%d-%d", idx, i)); err != nil {
					t.Errorf("Write(%d) error = %v", idx, err)
				}
			}
		}(index)
	}
	wg.Wait()

	buf := make([]byte, 32)
	for _, index := range []int{5, 6} {
		occ, err := r.Occupancy(index)
		if err != nil || occ != 50 {
			t.Errorf("Occupancy(%d) = %d, want 50", index, occ)
		}
		prefix := fmt.Sprintf("slot%d-", index)
		for i := 0; i < 50; i++ {
			n, ok, err := r.Read(ctx, index, buf)
			if err != nil || !ok {
				t.Fatalf("Read(%d) = (%v, %v)", index, ok, err)
			}
			if got := string(buf[:n]); len(got) < len(prefix) || got[:len(prefix)] != prefix {
				t.Fatalf("mailslot %d popped foreign message %q", index, got)
			}
		}
	}
}

func TestRegistry_ConcurrentOpenRelease(t *testing.T) {
	r := NewRegistry(WithSizing(4, 4, 16))

	// Many goroutines fight over the same index; exactly one Open may
	// succeed between Releases, and the open count must end at zero.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := r.Open(1); err == nil {
					if err := r.Release(1); err != nil {
						t.Errorf("Release after successful Open error = %v", err)
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := r.Stats().OpenCount; got != 0 {
		t.Errorf("OpenCount after churn = %d, want 0", got)
	}
	if err := r.Open(1); err != nil {
		t.Errorf("Open after churn error = %v", err)
	}
}

func TestRegistry_EventsPublished(t *testing.T) {
	bus := event.NewBus()
	var types []string
	bus.SubscribeAll(func(e event.Event) {
		types = append(types, e.EventType())
	})

	r := NewRegistry(WithSizing(2, 1, 16), WithBus(bus))
	ctx := context.Background()

	if err := r.Open(0); err != nil {
		t.Fatalf("Open error = %v", err)
	}
	if _, err := r.Write(ctx, 0, []byte("m")); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if _, err := r.Write(ctx, 0, []byte("rejected")); err == nil {
		t.Fatal("Write on full mailslot succeeded")
	}
	if _, _, err := r.Read(ctx, 0, make([]byte, 16)); err != nil {
		t.Fatalf("Read error = %v", err)
	}
	if _, err := r.Clear(ctx, 0); err != nil {
		t.Fatalf("Clear error = %v", err)
	}
	if err := r.Release(0); err != nil {
		t.Fatalf("Release error = %v", err)
	}

	want := []string{
		"mailslot.opened",
		"message.pushed",
		"message.rejected",
		"message.popped",
		"mailslot.cleared",
		"mailslot.released",
	}
	if len(types) != len(want) {
		t.Fatalf("published %d events %v, want %d", len(types), types, len(want))
	}
	for i, w := range want {
		if types[i] != w {
			t.Errorf("event[%d] = %q, want %q", i, types[i], w)
		}
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	if err := r.Open(1); err != nil {
		t.Fatalf("Open error = %v", err)
	}
	if _, err := r.Write(ctx, 6, []byte("m")); err != nil {
		t.Fatalf("Write error = %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d entries, want 2", len(snap))
	}
	if snap[0].Index != 1 || !snap[0].Opened || snap[0].Occupied != 0 {
		t.Errorf("snap[0] = %+v, want open empty mailslot 1", snap[0])
	}
	if snap[1].Index != 6 || snap[1].Opened || snap[1].Occupied != 1 {
		t.Errorf("snap[1] = %+v, want closed occupied mailslot 6", snap[1])
	}
}
