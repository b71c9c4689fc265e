// Package node implements the per-segment coordination header: sink
// lifecycle state, consumer refcounts, the write sequence, and the
// read/write barriers that hand samples off between a single producer
// and its attached consumers.
//
// # Protocol
//
// Node itself only tracks state; the producer/consumer protocol built on
// top of it (bind/connect/wait/post, end-of-stream, the destructor races)
// lives in package endpoint. Node's exported method names spell out the
// operations directly: IncrementSourceRefCount, DecrementSourceRefCount,
// IncrementSourceReadCount, ResetSourceReadCount, SetSinkState/SinkState,
// WriteNumber/IncrementWriteNumber.
//
// # Concurrency
//
// Node lives in shared memory and is mutated by unrelated OS processes
// (or, in this reimplementation's tests, goroutines standing in for them),
// so it cannot use sync.Mutex or sync.Cond — those rely on the Go runtime
// recognizing the same goroutine/M across calls. State transitions
// (refcounts, sink_state, write_number) are guarded by a CAS spinlock
// (internal, not exported); read_barrier[i] and write_barrier are the
// package barrier's polling counting semaphores. No code path holds the
// spinlock across a barrier wait.
package node
