package payload

import (
	"testing"
	"unsafe"

	"github.com/google/uuid"
)

func TestSampleMetadataStampRoundTrip(t *testing.T) {
	var m SampleMetadata
	id := uuid.New()
	m.Stamp(42, id)

	if m.WriteNumber != 42 {
		t.Fatalf("WriteNumber = %d, want 42", m.WriteNumber)
	}
	if m.Trace() != id {
		t.Fatalf("Trace() = %v, want %v", m.Trace(), id)
	}
	if m.Timestamp().IsZero() {
		t.Fatalf("Timestamp() is zero after Stamp")
	}
}

func TestSharedFrameHeaderStride(t *testing.T) {
	f := SharedFrameHeader{Width: 640, Height: 480, Format: PixelFormatRGB24}
	if got, want := f.Stride(), uint64(640*480*3); got != want {
		t.Fatalf("Stride() = %d, want %d", got, want)
	}
}

func TestSharedFrameHeaderImplementsPayload(t *testing.T) {
	var f SharedFrameHeader
	var _ Payload = &f
	if f.Meta() != &f.Sample {
		t.Fatalf("Meta() did not return &Sample")
	}
}

func TestPosition2DLabelRoundTrip(t *testing.T) {
	var p Position2D
	p.SetLabel("person-17")
	if got := p.GetLabel(); got != "person-17" {
		t.Fatalf("GetLabel() = %q, want %q", got, "person-17")
	}
}

func TestPosition2DLabelTruncates(t *testing.T) {
	var p Position2D
	long := ""
	for i := 0; i < labelCap+10; i++ {
		long += "x"
	}
	p.SetLabel(long)
	if len(p.GetLabel()) != labelCap {
		t.Fatalf("GetLabel() length = %d, want %d", len(p.GetLabel()), labelCap)
	}
}

func TestPosition2DValidityFlags(t *testing.T) {
	var p Position2D
	if p.HasPosition() || p.HasVelocity() || p.HasHeading() {
		t.Fatalf("fresh Position2D should have no valid fields")
	}

	p.SetPosition(1.5, -2.5)
	if !p.HasPosition() {
		t.Fatalf("expected HasPosition after SetPosition")
	}
	if p.HasVelocity() || p.HasHeading() {
		t.Fatalf("SetPosition must not mark velocity or heading valid")
	}

	p.SetVelocity(0.1, 0.2)
	p.SetHeading(1.0)
	if !p.HasVelocity() || !p.HasHeading() {
		t.Fatalf("expected velocity and heading valid after Set calls")
	}
}

func TestPosition2DImplementsPayload(t *testing.T) {
	var p Position2D
	var _ Payload = &p
	if p.Meta() != &p.Sample {
		t.Fatalf("Meta() did not return &Sample")
	}
}

func TestFixedLayoutHasNoPointerAlignmentSurprises(t *testing.T) {
	if unsafe.Sizeof(SharedFrameHeader{}) == 0 {
		t.Fatalf("SharedFrameHeader must not be zero-sized")
	}
	if unsafe.Sizeof(Position2D{}) == 0 {
		t.Fatalf("Position2D must not be zero-sized")
	}
}
