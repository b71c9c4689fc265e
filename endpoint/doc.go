// Package endpoint implements the producer (Sink[T]) and consumer
// (Source[T]) handles: the types that bind or connect to a segment's
// Node and payload slot and carry out the wait/post protocol node.Node
// defines.
//
// Both types are parameterized over the concrete payload struct T and a
// pointer type PT constrained to *T plus payload.Payload, the usual
// two-parameter pattern for binding pointer-receiver methods to a value
// type parameter. Callers instantiate concretely, e.g.
// endpoint.Sink[payload.Position2D, *payload.Position2D].
package endpoint
