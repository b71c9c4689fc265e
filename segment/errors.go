package segment

import "errors"

var (
	// ErrTooLarge is returned by FindOrConstruct when the segment has no
	// room left for another named object.
	ErrTooLarge = errors.New("segment: object does not fit in remaining segment space")

	// ErrDirectoryFull is returned by FindOrConstruct when the segment's
	// named-object directory has no free entry left.
	ErrDirectoryFull = errors.New("segment: named-object directory is full")

	// ErrTypeMismatch is returned by FindOrConstruct when an existing
	// named object was registered with a different size than the
	// requested type.
	ErrTypeMismatch = errors.New("segment: existing object size does not match requested type")

	// ErrNotFound is returned by Find when no object is registered under
	// the requested name.
	ErrNotFound = errors.New("segment: named object not found")
)
