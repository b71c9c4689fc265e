package endpoint

import "errors"

// ErrAlreadyBound is returned by Sink.Bind when another sink currently
// holds the node.
var ErrAlreadyBound = errors.New("endpoint: segment already has a bound sink")

// ErrNotBound is returned by Source operations attempted before Touch or
// by Sink operations attempted before Bind.
var ErrNotBound = errors.New("endpoint: endpoint is not bound to a segment")

// ErrSegmentGone is returned by Source.Connect when it finds the node's
// sink in the END state. Wait calls report end-of-stream as the End
// NodeState, not as this error.
var ErrSegmentGone = errors.New("endpoint: segment's sink reached end-of-stream")

// ErrOutOfSlots is returned by Source.Touch when the node already has
// MaxSources consumers attached.
var ErrOutOfSlots = errors.New("endpoint: node has no free source slots")

// ErrNoActiveSample is returned by Retrieve/Clone calls made outside the
// window between a successful Wait and the matching Post.
var ErrNoActiveSample = errors.New("endpoint: no active sample; call Wait first")

// ErrNotFramed is returned by ClonePixelBuffer when the payload type has
// no associated buffer view (e.g. payload.Position2D).
var ErrNotFramed = errors.New("endpoint: payload type has no associated buffer view")
