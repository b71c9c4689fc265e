package recorder

import (
	"sync"

	"github.com/visiona/oatbus/payload"
)

// frameSample is a fully cloned frame, safe to hand to a writer goroutine
// after the reader loop's protected window has closed: Source.Clone
// takes a consistent snapshot because it runs within the consumer's
// Wait/Post window, before the producer can overwrite the shared slot.
type frameSample struct {
	header payload.SharedFrameHeader
	pixels []byte
}

// frameWriter drains one frame source's queue into an Encoder on its own
// goroutine, the Go equivalent of Recorder's per-frame-source writer
// thread and condition variable. The channel itself is the queue and the
// condition variable: a blocked receive is the wait, a send is the
// notify.
type frameWriter struct {
	address string
	encoder Encoder
	queue   chan frameSample
	wg      sync.WaitGroup

	opened       bool
	framesQueued int
}

func newFrameWriter(address string, queueCap int, enc Encoder) *frameWriter {
	if enc == nil {
		enc = &NullEncoder{}
	}
	return &frameWriter{
		address: address,
		encoder: enc,
		queue:   make(chan frameSample, queueCap),
	}
}

// enqueue pushes s into the bounded queue, returning ErrQueueOverrun if
// it's full rather than dropping the sample silently.
func (w *frameWriter) enqueue(s frameSample) error {
	select {
	case w.queue <- s:
		w.framesQueued++
		return nil
	default:
		return ErrQueueOverrun
	}
}

// start spawns the writer goroutine. sampleRateHz is the recorder's
// effective (synchronized) rate, used to open the encoder lazily on the
// first sample.
func (w *frameWriter) start(sampleRateHz float64) {
	w.wg.Add(1)
	go w.run(sampleRateHz)
}

func (w *frameWriter) run(sampleRateHz float64) {
	defer w.wg.Done()

	for s := range w.queue {
		if !w.opened {
			if err := w.encoder.Open(int(s.header.Width), int(s.header.Height), s.header.Format, sampleRateHz); err != nil {
				continue
			}
			w.opened = true
		}
		w.encoder.WriteFrame(s.pixels)
	}

	if w.opened {
		w.encoder.Close()
	}
}

// stop closes the queue, causing run to drain whatever is buffered and
// exit, then waits for it to finish. The queue must not be enqueued to
// again after stop is called.
func (w *frameWriter) stop() {
	close(w.queue)
	w.wg.Wait()
}
