package mailslot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mikepicker/mailslot/internal/errors"
)

func TestGuard_AcquireRelease(t *testing.T) {
	g := newGuard()

	if err := g.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	if g.tryAcquire() {
		t.Error("tryAcquire() succeeded while guard held")
	}

	g.release()
	if !g.tryAcquire() {
		t.Error("tryAcquire() failed on free guard")
	}
	g.release()
}

func TestGuard_CancelledWaitReturnsBusy(t *testing.T) {
	g := newGuard()
	if !g.tryAcquire() {
		t.Fatal("tryAcquire() failed on fresh guard")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.acquire(ctx)
	if !errors.Is(err, errors.ErrBusy) {
		t.Fatalf("acquire() with expiring context error = %v, want ErrBusy", err)
	}

	// The abandoned wait must not have consumed the guard.
	g.release()
	if !g.tryAcquire() {
		t.Error("guard not reusable after abandoned wait")
	}
	g.release()
}

func TestGuard_MutualExclusion(t *testing.T) {
	g := newGuard()

	const workers = 8
	const iterations = 200

	counter := 0 // deliberately unsynchronized; the guard is the lock
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := g.acquire(context.Background()); err != nil {
					t.Errorf("acquire() error = %v", err)
					return
				}
				counter++
				g.release()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Errorf("counter = %d, want %d (lost updates under guard)", counter, workers*iterations)
	}
}

func TestGuard_BlockedWaiterProceedsAfterRelease(t *testing.T) {
	g := newGuard()
	if err := g.acquire(context.Background()); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := g.acquire(context.Background()); err != nil {
			t.Errorf("waiter acquire() error = %v", err)
			return
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired guard while held")
	case <-time.After(20 * time.Millisecond):
	}

	g.release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter did not acquire guard after release")
	}
	g.release()
}

func TestGuard_ReleaseUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("release() of unheld guard did not panic")
		}
	}()
	newGuard().release()
}
