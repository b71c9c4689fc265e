package recorder

import (
	"context"
	"log/slog"

	"github.com/visiona/oatbus/endpoint"
	"github.com/visiona/oatbus/payload"
)

const defaultQueueCapacity = 128

type frameSourceHandle struct {
	address    string
	frameBytes int
	source     endpoint.Source[payload.SharedFrameHeader, *payload.SharedFrameHeader]
	writer     *frameWriter
	eof        bool
}

type positionSourceHandle struct {
	address string
	source  endpoint.Source[payload.Position2D, *payload.Position2D]
	eof     bool
}

// Recorder connects N frame sources and M position sources and drives
// them in lock-step, exercising the substrate's backpressure and
// multi-source synchronization guarantees.
type Recorder struct {
	log *slog.Logger

	frameSources    []*frameSourceHandle
	positionSources []*positionSourceHandle

	recordOn     bool
	sampleRateHz float64

	posLog *PositionLog

	connected bool
	running   bool
}

// New constructs an empty Recorder. Use AddFrameSource/AddPositionSource
// to register sources before calling Connect.
func New(log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{log: log}
}

// AddFrameSource registers a frame source address with a bounded
// per-source write queue and an Encoder to drain it into. queueCap <= 0
// uses the default of 128, a small headroom against a momentary stall in
// the writer goroutine rather than an attempt to buffer deeply.
// frameBytes is the pixel buffer size the producer expects to bind with
// (width*height*bytes-per-pixel); segments are created lazily by
// whoever attaches first, so if this recorder's Touch reaches the
// address before the producer's Bind does, it must request the same
// size the producer will, or the producer's later Bind fails against a
// segment already created too small. Pass 0 only when this recorder is
// guaranteed to connect after the producer has bound.
func (r *Recorder) AddFrameSource(address string, frameBytes int, queueCap int, enc Encoder) {
	if queueCap <= 0 {
		queueCap = defaultQueueCapacity
	}
	r.frameSources = append(r.frameSources, &frameSourceHandle{
		address:    address,
		frameBytes: frameBytes,
		writer:     newFrameWriter(address, queueCap, enc),
	})
}

// AddPositionSource registers a position source address.
func (r *Recorder) AddPositionSource(address string) {
	r.positionSources = append(r.positionSources, &positionSourceHandle{address: address})
}

// SetRecording enables or disables writing to the encoders and position
// log; frames and positions are still read and posted either way so the
// producers never block on a recorder that isn't currently saving.
func (r *Recorder) SetRecording(on bool) { r.recordOn = on }

// Connect touches and connects every registered source, then checks
// their advertised sample periods: if they differ, it logs a warning and
// uses the slowest (maximum period) as the effective rate, matching
// Recorder::connectToNodes — the recorder itself never resamples.
func (r *Recorder) Connect() error {
	var maxPeriod float64
	var periodsDiffer bool
	first := true

	observe := func(period float64) {
		if first {
			maxPeriod = period
			first = false
			return
		}
		if period != maxPeriod {
			periodsDiffer = true
			if period > maxPeriod {
				maxPeriod = period
			}
		}
	}

	for _, fs := range r.frameSources {
		if err := fs.source.Touch(fs.address, fs.frameBytes); err != nil {
			return err
		}
		if err := fs.source.Connect(); err != nil {
			return err
		}
		hdr, err := fs.source.Retrieve()
		if err == nil {
			observe(hdr.Sample.PeriodSec)
		}
	}

	for _, ps := range r.positionSources {
		if err := ps.source.Touch(ps.address, 0); err != nil {
			return err
		}
		if err := ps.source.Connect(); err != nil {
			return err
		}
		pos, err := ps.source.Retrieve()
		if err == nil {
			observe(pos.Sample.PeriodSec)
		}
	}

	if maxPeriod <= 0 {
		maxPeriod = 1
	}
	r.sampleRateHz = 1.0 / maxPeriod

	if periodsDiffer {
		r.log.Warn("sample rates of sources are inconsistent; forcing synchronization at the slowest rate",
			"effective_rate_hz", r.sampleRateHz)
	}

	r.connected = true
	return nil
}

// OpenPositionLog opens path for this recorder's position samples. Call
// before Run if position sources are registered and SetRecording(true)
// will be used.
func (r *Recorder) OpenPositionLog(path string) error {
	sources := make([]string, len(r.positionSources))
	for i, ps := range r.positionSources {
		sources[i] = ps.address
	}
	log, err := OpenPositionLog(path, r.sampleRateHz, sources)
	if err != nil {
		return err
	}
	r.posLog = log
	return nil
}

// Run executes the main reader loop until ctx is cancelled or any source
// reaches end-of-stream. It returns ErrQueueOverrun immediately if a
// frame writer's queue is full.
func (r *Recorder) Run(ctx context.Context) error {
	if !r.connected {
		return ErrNotConnected
	}
	r.running = true

	for _, fs := range r.frameSources {
		fs.writer.start(r.sampleRateHz)
	}
	defer func() {
		for _, fs := range r.frameSources {
			fs.writer.stop()
		}
		if r.posLog != nil {
			r.posLog.Close()
		}
	}()

	positions := make([]payload.Position2D, len(r.positionSources))
	writeNumbers := make([]uint64, len(r.positionSources))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var sourceEOF bool

		for _, fs := range r.frameSources {
			if fs.eof {
				continue
			}
			if fs.source.Wait() == endpoint.End {
				fs.eof = true
				sourceEOF = true
				continue
			}

			if r.recordOn {
				hdr, err := fs.source.Clone()
				if err == nil {
					pixels, _ := fs.source.ClonePixelBuffer()
					if err := fs.writer.enqueue(frameSample{header: hdr, pixels: pixels}); err != nil {
						fs.source.Post()
						return err
					}
				}
			}
			fs.source.Post()
		}

		for i, ps := range r.positionSources {
			if ps.eof {
				continue
			}
			if ps.source.Wait() == endpoint.End {
				ps.eof = true
				sourceEOF = true
				continue
			}

			writeNumbers[i] = ps.source.WriteNumber()
			if pos, err := ps.source.Clone(); err == nil {
				positions[i] = pos
			}
			ps.source.Post()
		}

		if r.recordOn && r.posLog != nil && len(r.positionSources) > 0 {
			if err := r.posLog.WriteRow(writeNumbers, positions); err != nil {
				return err
			}
		}

		if sourceEOF {
			return nil
		}
	}
}

// Close detaches every source. Call after Run returns.
func (r *Recorder) Close() error {
	var firstErr error
	for _, fs := range r.frameSources {
		if err := fs.source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, ps := range r.positionSources {
		if err := ps.source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
