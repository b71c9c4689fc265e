package payload

import "fmt"

// PixelFormat identifies the layout of the pixel buffer a
// SharedFrameHeader describes.
type PixelFormat uint32

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatGray8
	PixelFormatRGB24
	PixelFormatBGR24
	PixelFormatRGBA32
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGray8:
		return "GRAY8"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatBGR24:
		return "BGR24"
	case PixelFormatRGBA32:
		return "RGBA32"
	default:
		return "UNKNOWN"
	}
}

// BytesPerPixel returns the pixel stride for f, or 0 if f is not
// recognized.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatGray8:
		return 1
	case PixelFormatRGB24, PixelFormatBGR24:
		return 3
	case PixelFormatRGBA32:
		return 4
	default:
		return 0
	}
}

// SharedFrameHeader describes a pixel buffer that lives alongside it in
// the same segment. It carries no pointer: PixelOffset is an offset from
// the segment's base address, resolved by endpoint/internal/view the same
// way segment.FindOrConstruct resolves named objects, so the header means
// the same thing no matter which process maps the segment.
type SharedFrameHeader struct {
	Width       int32
	Height      int32
	Format      PixelFormat
	PixelBytes  uint64 // Size of the buffer the sink reserved at bind time (its extraBytes); ResolveView bounds the span by the segment's length, not by this field.
	PixelOffset uint64
	Sample      SampleMetadata
}

// Stride returns the expected length in bytes of the pixel buffer this
// header describes.
func (f *SharedFrameHeader) Stride() uint64 {
	return uint64(f.Width) * uint64(f.Height) * uint64(f.Format.BytesPerPixel())
}

// SetBufferOffset records where the sink placed this frame's pixel
// buffer within the segment. Satisfies
// endpoint/internal/view.Allocator structurally.
func (f *SharedFrameHeader) SetBufferOffset(offset uint64, size uint64) {
	f.PixelOffset = offset
	f.PixelBytes = size
}

// ResolveView reinterprets base[PixelOffset:PixelOffset+Stride()] as the
// frame's non-owning pixel buffer. base is the segment's own byte slice,
// so the offset means the same thing regardless of where the
// segment happens to be mapped in the calling process. Satisfies
// endpoint/internal/view.Resolver structurally; payload does not import
// that package.
func (f *SharedFrameHeader) ResolveView(base []byte) ([]byte, error) {
	end := f.PixelOffset + f.Stride()
	if end < f.PixelOffset || end > uint64(len(base)) {
		return nil, fmt.Errorf("payload: frame pixel span [%d:%d] exceeds segment of %d bytes", f.PixelOffset, end, len(base))
	}
	return base[f.PixelOffset:end:end], nil
}
