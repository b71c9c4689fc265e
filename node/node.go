package node

import (
	"sync/atomic"
	"time"

	"github.com/visiona/oatbus/internal/barrier"
)

// MaxSources is the upper bound on attached consumers per node.
const MaxSources = 16

// HeartbeatTimeout is how long a Sink will tolerate a consumer slot with
// no observed progress before evicting it — a liveness timeout rather
// than a robust-mutex owner-death mechanism, which isn't available
// without cgo. Variable rather than const so tests can shrink it instead
// of sleeping out a real timeout.
var HeartbeatTimeout = 2 * time.Second

// SinkState is the sink's lifecycle.
type SinkState uint32

const (
	// Undefined means no sink has ever bound this node.
	Undefined SinkState = iota
	// Bound means a sink currently owns this node and may publish.
	Bound
	// End means the sink has shut down; consumers should drain and exit.
	End
)

func (s SinkState) String() string {
	switch s {
	case Undefined:
		return "UNDEFINED"
	case Bound:
		return "BOUND"
	case End:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Node is the fixed-layout coordination header placed in shared memory by
// segment.FindOrConstruct. It has no pointers and no Go-runtime-owned
// fields, so it is safe to share across address spaces.
type Node struct {
	spinlock uint32
	sinkStat uint32
	refCount uint32
	readCnt  uint32
	_        uint32
	writeNum uint64

	slotUsed  [MaxSources]uint32
	heartbeat [MaxSources]int64

	readBarrier  [MaxSources]barrier.Barrier
	writeBarrier barrier.Barrier
}

func (n *Node) lock() {
	for !atomic.CompareAndSwapUint32(&n.spinlock, 0, 1) {
	}
}

func (n *Node) unlock() {
	atomic.StoreUint32(&n.spinlock, 0)
}

// SinkState returns the node's current lifecycle state.
func (n *Node) SinkState() SinkState {
	return SinkState(atomic.LoadUint32(&n.sinkStat))
}

// SetSinkState transitions the node's lifecycle state.
func (n *Node) SetSinkState(s SinkState) {
	n.lock()
	atomic.StoreUint32(&n.sinkStat, uint32(s))
	n.unlock()
}

// CompareAndSwapSinkState atomically transitions the state only if it
// currently equals old, used by Sink.Bind to detect AlreadyBound vs a
// stale segment left behind by a producer that has since exited.
func (n *Node) CompareAndSwapSinkState(old, new SinkState) bool {
	n.lock()
	defer n.unlock()
	if SinkState(n.sinkStat) != old {
		return false
	}
	atomic.StoreUint32(&n.sinkStat, uint32(new))
	return true
}

// SourceRefCount returns the number of currently attached consumers.
func (n *Node) SourceRefCount() uint32 {
	return atomic.LoadUint32(&n.refCount)
}

// SourceReadCount returns how many attached consumers have finished
// reading the current sample.
func (n *Node) SourceReadCount() uint32 {
	return atomic.LoadUint32(&n.readCnt)
}

// WriteNumber returns the current monotonic sample sequence.
func (n *Node) WriteNumber() uint64 {
	return atomic.LoadUint64(&n.writeNum)
}

// IncrementWriteNumber advances the sample sequence under the node's
// mutex, the first step of the producer's post protocol.
func (n *Node) IncrementWriteNumber() uint64 {
	n.lock()
	n.writeNum++
	v := n.writeNum
	n.unlock()
	return v
}

// IncrementSourceRefCount attaches a new consumer, returning its stable
// slot index in [0, MaxSources).
func (n *Node) IncrementSourceRefCount() (slot int, err error) {
	n.lock()
	defer n.unlock()

	for i := 0; i < MaxSources; i++ {
		if atomic.LoadUint32(&n.slotUsed[i]) == 0 {
			atomic.StoreUint32(&n.slotUsed[i], 1)
			atomic.StoreInt64(&n.heartbeat[i], time.Now().UnixNano())
			n.refCount++
			return i, nil
		}
	}
	return 0, ErrTooManySources
}

// DecrementSourceRefCount detaches the consumer holding slot, returning
// the new reference count. It returns ErrNotAttached if slot was already
// freed, e.g. by EvictStale reclaiming it as a crashed consumer before
// this call arrived; the caller has nothing left to decrement.
func (n *Node) DecrementSourceRefCount(slot int) (uint32, error) {
	n.lock()
	defer n.unlock()

	if atomic.LoadUint32(&n.slotUsed[slot]) == 0 {
		return n.refCount, ErrNotAttached
	}
	atomic.StoreUint32(&n.slotUsed[slot], 0)
	if n.refCount > 0 {
		n.refCount--
	}
	return n.refCount, nil
}

// IncrementSourceReadCount bumps the read count for the current sample
// and returns the new value, the first step of the consumer-done
// protocol.
func (n *Node) IncrementSourceReadCount() uint32 {
	n.lock()
	defer n.unlock()
	n.readCnt++
	return n.readCnt
}

// ResetSourceReadCount zeroes the read count. Called only by the
// producer between samples.
func (n *Node) ResetSourceReadCount() {
	n.lock()
	atomic.StoreUint32(&n.readCnt, 0)
	n.unlock()
}

// Touch stamps slot's heartbeat, called by a Source on every successful
// Wait/Post so the Sink can detect a crashed consumer. It returns
// ErrNotAttached if slot has since been reclaimed by EvictStale, telling
// the caller it was evicted out from under itself and should stop
// treating the slot as live.
func (n *Node) Touch(slot int) error {
	if atomic.LoadUint32(&n.slotUsed[slot]) == 0 {
		return ErrNotAttached
	}
	atomic.StoreInt64(&n.heartbeat[slot], time.Now().UnixNano())
	return nil
}

// ReadBarrier returns the per-slot read barrier a consumer with that slot
// index waits on.
func (n *Node) ReadBarrier(slot int) *barrier.Barrier {
	return &n.readBarrier[slot]
}

// WriteBarrier returns the barrier the producer waits on for all attached
// consumers to finish reading the current sample.
func (n *Node) WriteBarrier() *barrier.Barrier {
	return &n.writeBarrier
}

// EvictStale scans attached slots for ones whose heartbeat is older than
// HeartbeatTimeout and detaches them, returning the slots freed. Rather
// than deadlocking forever on write_barrier waiting for a consumer that
// will never post again, the producer reclaims unresponsive slots so the
// (smaller) ref count can satisfy the outstanding read count itself.
func (n *Node) EvictStale(now time.Time) (evicted []int) {
	n.lock()
	defer n.unlock()

	deadline := now.Add(-HeartbeatTimeout).UnixNano()
	for i := 0; i < MaxSources; i++ {
		if atomic.LoadUint32(&n.slotUsed[i]) == 0 {
			continue
		}
		if atomic.LoadInt64(&n.heartbeat[i]) < deadline {
			atomic.StoreUint32(&n.slotUsed[i], 0)
			if n.refCount > 0 {
				n.refCount--
			}
			if n.readCnt > n.refCount {
				n.readCnt = n.refCount
			}
			evicted = append(evicted, i)
		}
	}
	return evicted
}

// ReadCountSatisfied reports whether every attached consumer has posted
// for the current sample, i.e. whether the producer's write_barrier
// should now be satisfied.
func (n *Node) ReadCountSatisfied() bool {
	n.lock()
	defer n.unlock()
	return n.readCnt >= n.refCount
}

// PostRead implements the consumer-done protocol as a single critical
// section: bump the read count and, if every attached consumer
// has now posted for the current sample, reset the count and report that
// the producer's write_barrier should be released. Doing the compare and
// the reset under one lock acquisition avoids the race a separate
// IncrementSourceReadCount + SourceRefCount comparison would have between
// two attached consumers finishing at the same instant.
func (n *Node) PostRead() (satisfied bool) {
	n.lock()
	defer n.unlock()
	n.readCnt++
	if n.readCnt >= n.refCount {
		n.readCnt = 0
		return true
	}
	return false
}

// AttachedSlots returns the slot indices currently marked in use, in
// ascending order. Sink.Post uses this to address read_barrier[i] for
// exactly the consumers presently attached, rather than assuming a dense
// [0, source_ref_count) range.
func (n *Node) AttachedSlots() []int {
	n.lock()
	defer n.unlock()
	slots := make([]int, 0, n.refCount)
	for i := 0; i < MaxSources; i++ {
		if atomic.LoadUint32(&n.slotUsed[i]) != 0 {
			slots = append(slots, i)
		}
	}
	return slots
}
