// Package barrier implements the counting-semaphore hand-off primitive the
// Node protocol uses for read_barrier[i] and write_barrier.
//
// A Barrier lives inside shared memory (it is a fixed-layout value, never
// holding pointers), so Post/Wait cannot rely on goroutine-local
// primitives like sync.Cond: every waiter polls. The fixed 10ms period is
// deliberate, not a missing optimization — a shared-memory primitive has
// to stay portable across processes with no common runtime, which rules
// out an indefinite wait tied to a specific OS's futex/condvar semantics.
package barrier

import (
	"sync/atomic"
	"time"
)

// PollInterval is the fixed polling granularity every Barrier waiter uses.
const PollInterval = 10 * time.Millisecond

// Barrier is a shared-memory-safe counting semaphore: Post increments an
// available count, Wait decrements it once available, polling at
// PollInterval while it is not.
type Barrier struct {
	available int64
}

// Post releases one waiter (or makes the next Wait call return
// immediately if none is currently waiting).
func (b *Barrier) Post() {
	atomic.AddInt64(&b.available, 1)
}

// Wait blocks until Post has made a unit available, or checkEnd reports
// true at a poll boundary, in which case Wait returns false without
// having consumed a unit. checkEnd may be nil.
func (b *Barrier) Wait(checkEnd func() bool) bool {
	for {
		if tryAcquire(&b.available) {
			return true
		}
		if checkEnd != nil && checkEnd() {
			return false
		}
		time.Sleep(PollInterval)
	}
}

func tryAcquire(available *int64) bool {
	for {
		cur := atomic.LoadInt64(available)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(available, cur, cur-1) {
			return true
		}
	}
}

// Reset clears any pending posts. Used when a sink re-binds a node a
// prior sink left in the End state, so a straggler Post from the
// previous producer's shutdown can't satisfy the new sink's first Wait.
func (b *Barrier) Reset() {
	atomic.StoreInt64(&b.available, 0)
}
