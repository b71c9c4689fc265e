// Package recorder implements the substrate's multi-source synchronizer:
// a process that connects to N frame sources and M position sources,
// each on its own segment address, and drives them in lock-step
// through one reader loop plus one writer goroutine per frame source.
//
// It exists to exercise the endpoint package's backpressure and
// multi-source synchronization guarantees, not to be a full-featured
// recording tool: video encoding is delegated to the Encoder interface,
// and the position log is a simple newline-delimited JSON stream.
package recorder
