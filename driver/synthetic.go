package driver

import (
	"errors"
	"time"

	"github.com/visiona/oatbus/payload"
)

// Synthetic grabs deterministic test-pattern frames at a fixed rate, with
// no external hardware dependency. It stands in for CameraControl in
// cmd/oat-frameserver; the endpoint and recorder tests build their frame
// headers directly instead.
type Synthetic struct {
	Width, Height int
	RateHz        float64

	opened bool
	frame  int
	last   time.Time
}

var errSyntheticNotOpen = errors.New("driver: synthetic driver not open")

func (s *Synthetic) Open() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.New("driver: synthetic driver requires positive width/height")
	}
	if s.RateHz <= 0 {
		s.RateHz = 30
	}
	s.opened = true
	s.frame = 0
	return nil
}

// Grab produces the next frame, sleeping as needed to hold RateHz. Each
// pixel's byte value is (frame index + pixel index) mod 256, so
// consecutive frames are visibly distinct and any consumer can verify it
// received frame N's data rather than a stale buffer.
func (s *Synthetic) Grab() (Frame, error) {
	if !s.opened {
		return Frame{}, errSyntheticNotOpen
	}

	period := time.Duration(float64(time.Second) / s.RateHz)
	if !s.last.IsZero() {
		if since := time.Since(s.last); since < period {
			time.Sleep(period - since)
		}
	}
	s.last = time.Now()

	pixels := make([]byte, s.Width*s.Height)
	for i := range pixels {
		pixels[i] = byte(s.frame + i)
	}
	s.frame++

	return Frame{
		Width:      s.Width,
		Height:     s.Height,
		Format:     payload.PixelFormatGray8,
		Pixels:     pixels,
		CapturedAt: s.last,
	}, nil
}

func (s *Synthetic) Close() error {
	s.opened = false
	return nil
}
