package node

import "errors"

// ErrTooManySources is returned by IncrementSourceRefCount when
// MaxSources consumers are already attached.
var ErrTooManySources = errors.New("node: too many sources attached")

// ErrNotAttached is returned by Touch and DecrementSourceRefCount when
// given a slot that is no longer marked attached — typically because
// EvictStale already reclaimed it as a crashed consumer before the call
// arrived.
var ErrNotAttached = errors.New("node: slot is not attached")
