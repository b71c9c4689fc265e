package endpoint

import (
	"time"

	"github.com/google/uuid"
	"github.com/visiona/oatbus/endpoint/internal/view"
	"github.com/visiona/oatbus/node"
	"github.com/visiona/oatbus/payload"
	"github.com/visiona/oatbus/segment"
)

// Sink is the unique producer endpoint for a segment. T is the payload
// struct (e.g. payload.Position2D) and PT is its pointer type, which
// must satisfy payload.Payload.
type Sink[T any, PT interface {
	*T
	payload.Payload
}] struct {
	address string
	seg     *segment.Segment
	nd      *node.Node
	obj     PT
	bound   bool
}

// Bind opens or creates the segment at address, finds or constructs its
// Node and payload slot, and claims sink ownership. extraBytes is
// additional segment capacity for a payload-referenced buffer, such as
// SharedFrameHeader's pixel data; pass 0 for self-contained payloads.
//
// Bind fails with ErrAlreadyBound if another sink currently holds the
// node. A node left in END state by a prior sink that has since exited
// is reclaimed rather than rejected, so a crashed-and-restarted producer
// can reuse its old address.
func (s *Sink[T, PT]) Bind(address string, extraBytes int) error {
	if s.bound {
		return ErrAlreadyBound
	}

	seg, err := segment.OpenOrCreate(address, segmentSize[T](extraBytes))
	if err != nil {
		return err
	}

	nd, _, err := segment.FindOrConstruct[node.Node](seg, nodeObjectName)
	if err != nil {
		seg.Close()
		return err
	}

	obj, constructed, err := segment.FindOrConstruct[T](seg, payloadObjectName)
	if err != nil {
		seg.Close()
		return err
	}

	if constructed && extraBytes > 0 {
		if alloc, ok := any(PT(obj)).(view.Allocator); ok {
			offset, rerr := seg.Reserve(uint64(extraBytes))
			if rerr != nil {
				seg.Close()
				return rerr
			}
			alloc.SetBufferOffset(offset, uint64(extraBytes))
		}
	}

	switch {
	case nd.CompareAndSwapSinkState(node.Undefined, node.Bound):
	case nd.CompareAndSwapSinkState(node.End, node.Bound):
		// Reuse the same Node/segment rather than removing and
		// recreating it: clear the read count and every barrier a prior
		// sink's Close may have posted, so a straggler post from the
		// previous producer's shutdown can't satisfy this sink's first
		// Wait.
		nd.ResetSourceReadCount()
		nd.WriteBarrier().Reset()
		for i := 0; i < node.MaxSources; i++ {
			nd.ReadBarrier(i).Reset()
		}
	default:
		seg.Close()
		return ErrAlreadyBound
	}

	s.address = address
	s.seg = seg
	s.nd = nd
	s.obj = PT(obj)
	s.bound = true
	return nil
}

// Retrieve returns the exclusive mutable handle to the payload slot for
// in-place population. Valid between post cycles; the caller must not
// mutate it again after Post until the next Wait/Post round completes
// for all consumers.
func (s *Sink[T, PT]) Retrieve() (PT, error) {
	if !s.bound {
		return nil, ErrNotBound
	}
	return s.obj, nil
}

// View returns the sink's own non-owning associated buffer — e.g.
// SharedFrameHeader's pixel data — for in-place writes ahead of Post, or
// false if the payload type has none or the sink isn't bound.
func (s *Sink[T, PT]) View() ([]byte, bool) {
	if !s.bound {
		return nil, false
	}
	buf, ok, err := view.Resolve(s.obj, s.seg.Bytes())
	if err != nil || !ok {
		return nil, false
	}
	return buf, true
}

// Post publishes the current sample: stamps its SampleMetadata, advances
// write_number, and releases every attached consumer's read_barrier. It
// returns the new write_number.
func (s *Sink[T, PT]) Post(traceID uuid.UUID) uint64 {
	wn := s.nd.IncrementWriteNumber()
	s.obj.Meta().Stamp(wn, traceID)

	slots := s.nd.AttachedSlots()
	for _, i := range slots {
		s.nd.ReadBarrier(i).Post()
	}
	return wn
}

// Wait blocks until every attached consumer has finished reading the
// last posted sample, returning immediately if no consumers are
// attached. Each poll also evicts any consumer slot that has gone quiet
// for longer than node.HeartbeatTimeout, so a dead consumer can't block
// write_barrier forever; an eviction that brings the read count back in
// line with the reference count posts write_barrier itself, since the
// evicted consumer will never call Source.Post to do it.
func (s *Sink[T, PT]) Wait() NodeState {
	if s.nd.SourceRefCount() == 0 {
		return OK
	}
	checkEnd := func() bool {
		if len(s.nd.EvictStale(time.Now())) > 0 && s.nd.ReadCountSatisfied() {
			s.nd.ResetSourceReadCount()
			s.nd.WriteBarrier().Post()
		}
		return s.nd.SinkState() == node.End
	}
	ok := s.nd.WriteBarrier().Wait(checkEnd)
	if !ok {
		return End
	}
	return OK
}

// Close releases sink ownership: sets sink_state to END, posts every
// barrier to free any stragglers, and — if it finds no consumers left
// attached — removes the underlying segment.
func (s *Sink[T, PT]) Close() error {
	if !s.bound {
		return nil
	}
	s.bound = false

	s.nd.SetSinkState(node.End)
	for _, i := range s.nd.AttachedSlots() {
		s.nd.ReadBarrier(i).Post()
	}
	s.nd.WriteBarrier().Post()

	remove := s.nd.SourceRefCount() == 0
	err := s.seg.Close()
	if remove {
		if rmErr := segment.Remove(s.address); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}
