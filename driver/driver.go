package driver

import (
	"time"

	"github.com/visiona/oatbus/payload"
)

// Frame is one grabbed image, independent of the shared-memory substrate,
// so a Driver can be tested and reused without a bound Sink.
type Frame struct {
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Format is the pixel layout of Pixels.
	Format payload.PixelFormat
	// Pixels holds Width*Height*Format.BytesPerPixel() bytes.
	Pixels []byte
	// CapturedAt is when the driver produced this frame.
	CapturedAt time.Time
}

// Driver is the capability a frame producer needs: open once, grab
// repeatedly, close once. It replaces CameraControl's
// connect_to_camera/setup_*/grab_image/turn_camera_on sequence with the
// minimum shape cmd/oat-frameserver needs, independent of any particular
// camera SDK.
type Driver interface {
	Open() error
	Grab() (Frame, error)
	Close() error
}
