// Package segment implements the Shared Segment Manager: named
// shared-memory segment creation, named-object placement inside a segment,
// and deallocation.
//
// # Overview
//
// A Segment is a single OS shared-memory object sized once at creation
// time to hold a Node (package node), one payload value of type T
// (package payload), and an optional extra byte region (e.g. pixel data).
// Two names are carved out of that one segment via FindOrConstruct: one
// for the Node, one for the payload — this package implements that as a
// tiny named-object directory placed at the front of the mapped region,
// not as two separate OS objects.
//
// # Thread/process safety
//
// OpenOrCreate is safe to call concurrently from many goroutines or
// processes racing to bind the same address: the underlying platform
// mapping (package segment/internal/shm) resolves the create-vs-open race
// with an O_EXCL-then-fallback-open, and FindOrConstruct resolves the
// named-object race with a short spinlock held only across the directory
// scan/insert, never across I/O or blocking calls.
package segment
