// Package transform supplements the dropped position-filter polymorphism
// the same way driver supplements the dropped camera-driver hierarchy:
// one function type instead of a filter base class. Kalman filtering,
// homography correction, and region annotation — the original's real
// filters — stay out of scope; only the pipeline shape survives,
// reexpressing original_source/src/positionfilter/main.cpp's
// Source->filter->Sink loop around a swappable function value.
package transform

import "github.com/visiona/oatbus/payload"

// Transform maps one position sample to another. cmd/oat-positionfilter
// applies it between reading from a Source and posting to a Sink.
type Transform func(payload.Position2D) payload.Position2D

// Identity passes its input through unchanged. The only concrete
// Transform this package ships; a real deployment supplies its own.
func Identity(p payload.Position2D) payload.Position2D { return p }
