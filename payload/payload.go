package payload

import (
	"fmt"
	"unsafe"
)

func init() {
	if sz := unsafe.Sizeof(SharedFrameHeader{}); sz%8 != 0 {
		panic(fmt.Sprintf("SharedFrameHeader size %d is not 8-byte aligned", sz))
	}
	if sz := unsafe.Sizeof(Position2D{}); sz%8 != 0 {
		panic(fmt.Sprintf("Position2D size %d is not 8-byte aligned", sz))
	}
}

// Payload constrains the type parameter endpoint.Sink and endpoint.Source
// are generic over. It is satisfied only by the fixed-layout types this
// package defines; isPayload is unexported so no type outside this package
// can implement it by accident.
type Payload interface {
	isPayload()
	// Meta returns a pointer to the sample's embedded bookkeeping fields
	// so the endpoint package can stamp WriteNumber/TimestampNs/TraceID
	// without knowing the concrete payload type.
	Meta() *SampleMetadata
}

func (f *SharedFrameHeader) isPayload() {}
func (p *Position2D) isPayload()        {}

// Meta returns f's embedded SampleMetadata.
func (f *SharedFrameHeader) Meta() *SampleMetadata { return &f.Sample }

// Meta returns p's embedded SampleMetadata.
func (p *Position2D) Meta() *SampleMetadata { return &p.Sample }
