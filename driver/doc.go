// Package driver supplies frame producers for cmd/oat-frameserver. It
// replaces the original's CameraControl/PGGigECam/WebCam/FileReader class
// hierarchy with a single capability interface: hardware camera bindings
// are out of scope for this substrate, but frameserver still needs
// something to drive a Sink at a steady rate, so Driver gives it one.
package driver
