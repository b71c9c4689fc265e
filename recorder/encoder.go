package recorder

import "github.com/visiona/oatbus/payload"

// Encoder receives decoded pixel buffers for a single frame source and is
// responsible for writing them out, e.g. to a video file. It replaces the
// original's cv::VideoWriter: camera/video-codec bindings are out of
// scope for this substrate, so encoding is an interface with no bundled
// implementation beyond the NullEncoder test double below.
//
// Open is called lazily on the first frame, once its dimensions and the
// recorder's effective sample rate are known, matching
// Recorder::initializeVideoWriter's lazy-open behavior.
type Encoder interface {
	Open(width, height int, format payload.PixelFormat, frameRateHz float64) error
	WriteFrame(pixels []byte) error
	Close() error
}

// NullEncoder discards every frame. Useful for exercising the recorder's
// queueing and synchronization behavior without a real video backend, and
// as a default when a caller doesn't supply one.
type NullEncoder struct {
	opened       bool
	framesWritten int
}

func (e *NullEncoder) Open(width, height int, format payload.PixelFormat, frameRateHz float64) error {
	e.opened = true
	return nil
}

func (e *NullEncoder) WriteFrame(pixels []byte) error {
	if !e.opened {
		return nil
	}
	e.framesWritten++
	return nil
}

func (e *NullEncoder) Close() error { return nil }

// FramesWritten reports how many frames WriteFrame has accepted, for
// tests.
func (e *NullEncoder) FramesWritten() int { return e.framesWritten }
