package recorder

import "errors"

// ErrQueueOverrun is returned by Run when a frame writer's bounded queue
// is full, i.e. the writer can't keep up with the source's sample rate.
// An overrun is a fatal error, never a silent drop.
var ErrQueueOverrun = errors.New("recorder: frame writer queue overrun")

// ErrNotConnected is returned by Run if called before Connect.
var ErrNotConnected = errors.New("recorder: Connect must succeed before Run")
