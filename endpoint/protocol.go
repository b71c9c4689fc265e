package endpoint

import (
	"unsafe"

	"github.com/visiona/oatbus/node"
)

// NodeState is the outcome of a Wait call.
type NodeState int

const (
	// OK means a sample (Source) or consumer-drained slot (Sink) is
	// ready.
	OK NodeState = iota
	// End means the sink has reached end-of-stream; no further samples
	// will be posted.
	End
)

func (s NodeState) String() string {
	if s == End {
		return "END"
	}
	return "OK"
}

// Object names within a segment's directory. The original substrate
// keyed these off the full segment address (address+"/shmgr",
// address+"/shobj"); since our segment directory is already namespaced
// per address, a fixed name per object kind is enough.
const (
	nodeObjectName    = "shmgr"
	payloadObjectName = "shobj"
)

// segmentSize returns the total capacity to request for a segment
// carrying one Node, one T, and extraBytes of payload-referenced buffer
// (e.g. pixel data), with slack for the segment's own directory
// bookkeeping and alignment padding.
func segmentSize[T any](extraBytes int) int {
	const directorySlack = 4096
	return int(unsafe.Sizeof(node.Node{})) + int(unsafe.Sizeof(*new(T))) + extraBytes + directorySlack
}
