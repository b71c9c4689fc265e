package recorder

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/visiona/oatbus/payload"
)

// positionLogHeader is written once as the first line of the log,
// mirroring Recorder::writePositionFileHeader's date/sample_rate_hz/
// position_sources fields.
type positionLogHeader struct {
	Date             string   `json:"date"`
	SampleRateHz     float64  `json:"sample_rate_hz"`
	PositionSources  []string `json:"position_sources"`
}

// positionLogRow is one synchronized sample across all position sources,
// written as a single line.
type positionLogRow struct {
	WriteNumbers []uint64         `json:"write_numbers"`
	Positions    []positionRecord `json:"positions"`
}

type positionRecord struct {
	Label         string   `json:"label"`
	PositionValid bool     `json:"position_valid"`
	Position      [2]float64 `json:"position,omitempty"`
	VelocityValid bool     `json:"velocity_valid"`
	Velocity       [2]float64 `json:"velocity,omitempty"`
	HeadingValid  bool     `json:"heading_valid"`
	Heading       float64  `json:"heading,omitempty"`
	TimestampNs   int64    `json:"timestamp_ns"`
}

// PositionLog is an append-only newline-delimited JSON writer for
// position samples, replacing the original's rapidjson PrettyWriter over
// a single nested array. One JSON object per line keeps the format
// streamable and recoverable after a crash mid-write, at the cost of the
// original's pretty single-document shape.
type PositionLog struct {
	f *os.File
	w *bufio.Writer
	e *json.Encoder
}

// OpenPositionLog creates path, truncating any existing file, and writes
// the header line.
func OpenPositionLog(path string, sampleRateHz float64, sources []string) (*PositionLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	hdr := positionLogHeader{
		Date:            time.Now().UTC().Format(time.RFC3339),
		SampleRateHz:    sampleRateHz,
		PositionSources: sources,
	}
	if err := enc.Encode(hdr); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, err
	}

	return &PositionLog{f: f, w: w, e: enc}, nil
}

// WriteRow appends one synchronized sample row and fsyncs the file, so a
// recorder crash loses at most the in-flight row rather than corrupting
// or silently dropping prior ones.
func (l *PositionLog) WriteRow(writeNumbers []uint64, positions []payload.Position2D) error {
	row := positionLogRow{
		WriteNumbers: append([]uint64(nil), writeNumbers...),
		Positions:    make([]positionRecord, len(positions)),
	}
	for i, p := range positions {
		row.Positions[i] = positionRecord{
			Label:         p.GetLabel(),
			PositionValid: p.HasPosition(),
			Position:      [2]float64{p.Position.X, p.Position.Y},
			VelocityValid: p.HasVelocity(),
			Velocity:      [2]float64{p.Velocity.X, p.Velocity.Y},
			HeadingValid:  p.HasHeading(),
			Heading:       p.Heading,
			TimestampNs:   p.Sample.TimestampNs,
		}
	}

	if err := l.e.Encode(row); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Sync()
}

// Close flushes and closes the underlying file.
func (l *PositionLog) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
