package payload

import (
	"time"

	"github.com/google/uuid"
)

// SampleMetadata is embedded in every payload type and carries the
// bookkeeping common to both SharedFrameHeader and Position2D: the
// write_number echo, a capture timestamp, the producer's advertised
// sample period, and a trace id a recorder or socket can correlate across
// a pipeline stage.
type SampleMetadata struct {
	WriteNumber uint64
	TimestampNs int64
	PeriodSec   float64
	TraceID     [16]byte
}

// Stamp fills in WriteNumber/TimestampNs/TraceID for a freshly produced
// sample. PeriodSec is left to the caller since it's a property of the
// producer's configured rate, not of any individual sample.
func (m *SampleMetadata) Stamp(writeNumber uint64, traceID uuid.UUID) {
	m.WriteNumber = writeNumber
	m.TimestampNs = time.Now().UnixNano()
	m.TraceID = [16]byte(traceID)
}

// Timestamp returns TimestampNs as a time.Time.
func (m SampleMetadata) Timestamp() time.Time {
	return time.Unix(0, m.TimestampNs)
}

// Trace returns the sample's trace id.
func (m SampleMetadata) Trace() uuid.UUID {
	return uuid.UUID(m.TraceID)
}
