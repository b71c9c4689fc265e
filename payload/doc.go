// Package payload defines the two fixed-layout value types that a Sink
// publishes and a Source reads in place or clones out of shared memory:
// SharedFrameHeader, a description of a pixel buffer living alongside it
// in the same segment, and Position2D, a self-contained tracked-position
// record.
//
// Both types contain no pointers, slices, maps, or strings of unbounded
// length — every field is a fixed-size value so the struct's byte layout
// is meaningful across process/address-space boundaries and stable
// across every process linking the same substrate build.
package payload
