package endpoint

import (
	"time"

	"github.com/visiona/oatbus/endpoint/internal/view"
	"github.com/visiona/oatbus/node"
	"github.com/visiona/oatbus/internal/barrier"
	"github.com/visiona/oatbus/payload"
	"github.com/visiona/oatbus/segment"
)

// Source is a consumer endpoint; many may attach to the same segment.
// T is the payload struct and PT its pointer type.
type Source[T any, PT interface {
	*T
	payload.Payload
}] struct {
	address  string
	seg      *segment.Segment
	nd       *node.Node
	obj      PT
	view     []byte
	framed   bool
	slot     int
	attached bool
	reading  bool
}

// Touch opens or creates the segment at address, finds or constructs its
// Node and payload slot, and claims a consumer slot. extraBytes must
// match what the sink bound with, since it determines total segment
// capacity when this Source arrives first.
func (s *Source[T, PT]) Touch(address string, extraBytes int) error {
	if s.attached {
		return nil
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

	obj, _, err := segment.FindOrConstruct[T](seg, payloadObjectName)
	if err != nil {
		seg.Close()
		return err
	}

	slot, err := nd.IncrementSourceRefCount()
	if err != nil {
		seg.Close()
		return ErrOutOfSlots
	}

	s.address = address
	s.seg = seg
	s.nd = nd
	s.obj = PT(obj)
	s.slot = slot
	s.attached = true
	return nil
}

// Connect blocks until the node's sink becomes BOUND, then materializes
// the payload type's
// associated buffer view, if it has one (e.g. SharedFrameHeader's pixel
// data). Returns ErrSegmentGone if the sink reaches END before ever
// binding.
func (s *Source[T, PT]) Connect() error {
	if !s.attached {
		return ErrNotBound
	}

	for {
		switch s.nd.SinkState() {
		case node.Bound:
			buf, framed, err := view.Resolve(s.obj, s.seg.Bytes())
			if err != nil {
				return err
			}
			s.view, s.framed = buf, framed
			return nil
		case node.End:
			return ErrSegmentGone
		default:
			time.Sleep(barrier.PollInterval)
		}
	}
}

// Wait blocks until the producer posts the next sample, or the sink
// reaches end-of-stream. On OK, Retrieve/Clone become valid until the
// matching Post.
func (s *Source[T, PT]) Wait() NodeState {
	if !s.attached {
		return End
	}
	if err := s.nd.Touch(s.slot); err != nil {
		// The producer's heartbeat scan already reclaimed this slot as a
		// crashed consumer; there's nothing left to wait on.
		s.attached = false
		return End
	}
	ok := s.nd.ReadBarrier(s.slot).Wait(func() bool { return s.nd.SinkState() == node.End })
	if !ok || s.nd.SinkState() == node.End {
		// A post consumed after the sink reached END is Close freeing
		// stragglers, not a new sample.
		return End
	}
	if buf, framed, err := view.Resolve(s.obj, s.seg.Bytes()); err == nil {
		s.view, s.framed = buf, framed
	}
	s.reading = true
	return OK
}

// Retrieve returns the current sample. Valid only between a successful
// Wait and the matching Post.
func (s *Source[T, PT]) Retrieve() (PT, error) {
	if !s.reading {
		return nil, ErrNoActiveSample
	}
	return s.obj, nil
}

// Clone deep-copies the current sample's header into process-private
// memory. For payload types with an associated buffer view, use
// ClonePixelBuffer alongside it to copy the referenced bytes.
func (s *Source[T, PT]) Clone() (T, error) {
	if !s.reading {
		var zero T
		return zero, ErrNoActiveSample
	}
	return *s.obj, nil
}

// ClonePixelBuffer deep-copies the payload's associated buffer, such as
// SharedFrameHeader's pixel data. Returns ErrNotFramed for
// payload types with no associated buffer.
func (s *Source[T, PT]) ClonePixelBuffer() ([]byte, error) {
	if !s.reading {
		return nil, ErrNoActiveSample
	}
	if !s.framed {
		return nil, ErrNotFramed
	}
	out := make([]byte, len(s.view))
	copy(out, s.view)
	return out, nil
}

// View returns the current sample's non-owning associated buffer, valid
// only between Wait and Post, or false if the payload type has none.
func (s *Source[T, PT]) View() ([]byte, bool) {
	if !s.reading || !s.framed {
		return nil, false
	}
	return s.view, true
}

// WriteNumber returns the write_number of the currently retrievable
// sample.
func (s *Source[T, PT]) WriteNumber() uint64 {
	return s.nd.WriteNumber()
}

// Post releases the current sample. If this Source was the last
// consumer to post for the current sample, it resets the read count and
// releases the producer's write_barrier.
func (s *Source[T, PT]) Post() {
	if !s.reading {
		return
	}
	s.reading = false
	if s.nd.Touch(s.slot) != nil {
		// Evicted while holding the sample; the producer has already
		// moved the read count past this consumer, so posting again
		// would double count against the next round.
		return
	}
	if s.nd.PostRead() {
		s.nd.WriteBarrier().Post()
	}
}

// Close detaches this consumer. If it holds an outstanding sample it
// posts once on its own behalf first, so the producer cannot deadlock
// waiting on write_barrier for a consumer that's going away. If this
// detach drops the ref count to zero and no sink is bound, it is the
// unique remover and removes the segment after freeing any stragglers.
func (s *Source[T, PT]) Close() error {
	if !s.attached {
		return nil
	}
	s.attached = false

	if s.reading {
		s.Post()
	}

	remaining, err := s.nd.DecrementSourceRefCount(s.slot)
	if err != nil {
		// Already reclaimed by EvictStale; nothing left to decrement.
		remaining = s.nd.SourceRefCount()
	}
	remove := remaining == 0 && s.nd.SinkState() != node.Bound

	if remove {
		s.nd.WriteBarrier().Post()
	}

	err = s.seg.Close()
	if remove {
		if rmErr := segment.Remove(s.address); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}
