package node

import (
	"testing"
	"time"
)

func TestRefCountSlotsAndMax(t *testing.T) {
	var n Node

	slots := make([]int, 0, MaxSources)
	for i := 0; i < MaxSources; i++ {
		slot, err := n.IncrementSourceRefCount()
		if err != nil {
			t.Fatalf("attach %d: unexpected error: %v", i, err)
		}
		slots = append(slots, slot)
	}

	if _, err := n.IncrementSourceRefCount(); err != ErrTooManySources {
		t.Fatalf("expected ErrTooManySources on attach %d, got %v", MaxSources+1, err)
	}

	if got := n.SourceRefCount(); got != MaxSources {
		t.Fatalf("SourceRefCount = %d, want %d", got, MaxSources)
	}

	for _, s := range slots {
		n.DecrementSourceRefCount(s)
	}
	if got := n.SourceRefCount(); got != 0 {
		t.Fatalf("SourceRefCount after full detach = %d, want 0", got)
	}

	// A freed slot must be reusable.
	if _, err := n.IncrementSourceRefCount(); err != nil {
		t.Fatalf("reattach after full detach: %v", err)
	}
}

func TestWriteNumberMonotonic(t *testing.T) {
	var n Node
	for want := uint64(1); want <= 1000; want++ {
		if got := n.IncrementWriteNumber(); got != want {
			t.Fatalf("IncrementWriteNumber = %d, want %d", got, want)
		}
	}
	if got := n.WriteNumber(); got != 1000 {
		t.Fatalf("WriteNumber = %d, want 1000", got)
	}
}

func TestReadCountResetAndSatisfied(t *testing.T) {
	var n Node
	for i := 0; i < 3; i++ {
		if _, err := n.IncrementSourceRefCount(); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}

	if n.ReadCountSatisfied() {
		t.Fatalf("expected unsatisfied read count before any reads")
	}

	for i := 0; i < 3; i++ {
		n.IncrementSourceReadCount()
	}
	if !n.ReadCountSatisfied() {
		t.Fatalf("expected satisfied read count after 3 reads with ref count 3")
	}

	n.ResetSourceReadCount()
	if n.SourceReadCount() != 0 {
		t.Fatalf("SourceReadCount after reset = %d, want 0", n.SourceReadCount())
	}
}

func TestSinkStateCompareAndSwap(t *testing.T) {
	var n Node
	if n.SinkState() != Undefined {
		t.Fatalf("initial SinkState = %v, want Undefined", n.SinkState())
	}

	if !n.CompareAndSwapSinkState(Undefined, Bound) {
		t.Fatalf("expected CAS Undefined->Bound to succeed")
	}
	if n.CompareAndSwapSinkState(Undefined, Bound) {
		t.Fatalf("expected second CAS Undefined->Bound to fail, state is already Bound")
	}
	if n.SinkState() != Bound {
		t.Fatalf("SinkState = %v, want Bound", n.SinkState())
	}

	n.SetSinkState(End)
	if n.SinkState() != End {
		t.Fatalf("SinkState after SetSinkState(End) = %v, want End", n.SinkState())
	}
}

func TestBarrierPostWaitRoundTrip(t *testing.T) {
	var n Node
	slot, err := n.IncrementSourceRefCount()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		done <- n.ReadBarrier(slot).Wait(func() bool { return n.SinkState() == End })
	}()

	// Give the waiter a moment to start polling before posting.
	time.Sleep(5 * time.Millisecond)
	n.ReadBarrier(slot).Post()

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("Wait returned false (END) but no END was set")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not return after Post")
	}
}

func TestBarrierWaitObservesEnd(t *testing.T) {
	var n Node
	slot, err := n.IncrementSourceRefCount()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		done <- n.ReadBarrier(slot).Wait(func() bool { return n.SinkState() == End })
	}()

	time.Sleep(5 * time.Millisecond)
	n.SetSinkState(End)

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Wait returned true, expected false (END) since no Post occurred")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not observe END within timeout")
	}
}

func TestEvictStaleFreesSlotAndSatisfiesBarrier(t *testing.T) {
	var n Node
	slot, err := n.IncrementSourceRefCount()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	_ = slot

	if n.ReadCountSatisfied() {
		t.Fatalf("expected unsatisfied before eviction")
	}

	future := time.Now().Add(HeartbeatTimeout + time.Second)
	evicted := n.EvictStale(future)
	if len(evicted) != 1 {
		t.Fatalf("EvictStale returned %d slots, want 1", len(evicted))
	}
	if n.SourceRefCount() != 0 {
		t.Fatalf("SourceRefCount after eviction = %d, want 0", n.SourceRefCount())
	}
	if !n.ReadCountSatisfied() {
		t.Fatalf("expected satisfied read count once ref count drops to match it")
	}
}
