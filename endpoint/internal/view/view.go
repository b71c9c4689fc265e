// Package view provides an "associated view constructor" strategy in
// place of the original's template specialization on T: rather than a
// Source<SharedCVMat> subclass with extra behavior, any payload type may
// optionally implement Resolver to
// describe a buffer that lives elsewhere in the same segment. Source[T]
// checks for the interface with a type assertion and falls back to a
// plain in-place view when a payload type doesn't implement it.
package view

// Resolver is implemented by payload types that reference a byte buffer
// placed elsewhere in the same segment, such as SharedFrameHeader's pixel
// data. base is the segment's own backing slice.
type Resolver interface {
	ResolveView(base []byte) ([]byte, error)
}

// Allocator is implemented by payload types whose associated buffer is
// allocated by the sink at bind time, inside the same segment, as a raw
// pixel buffer. Sink.Bind reserves
// extraBytes from the segment's allocator and records the resulting
// offset via SetBufferOffset, once, only on the bind that first
// constructs the payload slot.
type Allocator interface {
	Resolver
	SetBufferOffset(offset uint64, size uint64)
}

// Resolve type-asserts obj against Resolver and, if it implements the
// interface, resolves its view against base. ok is false for payload
// types with no associated buffer (e.g. Position2D), which is not an
// error.
func Resolve(obj any, base []byte) (view []byte, ok bool, err error) {
	r, ok := obj.(Resolver)
	if !ok {
		return nil, false, nil
	}
	view, err = r.ResolveView(base)
	return view, true, err
}
