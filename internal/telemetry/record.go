package telemetry

import (
	"encoding/binary"
	"math"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

// RecordSize is the number of bytes sent per frame. The in-memory layout
// OpenTrack uses is 56 bytes; the trailing padding is not transmitted.
const RecordSize = 52

// Record is one OpenTrack "UDP over network" frame.
type Record struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
	Frame            uint32
}

// FromSample builds a rotation-only record.
func FromSample(s orientation.Sample, frame uint32) Record {
	return Record{
		Yaw:   float64(s.Yaw),
		Pitch: float64(s.Pitch),
		Roll:  float64(s.Roll),
		Frame: frame,
	}
}

// AppendBinary appends the wire encoding of r to b in host byte order, which
// is what OpenTrack reads.
func (r Record) AppendBinary(b []byte) ([]byte, error) {
	for _, v := range [...]float64{r.X, r.Y, r.Z, r.Yaw, r.Pitch, r.Roll} {
		b = binary.NativeEndian.AppendUint64(b, math.Float64bits(v))
	}

	return binary.NativeEndian.AppendUint32(b, r.Frame), nil
}

func (r Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, RecordSize))
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return errors.New().WithData(ErrShortRecord, len(data))
	}

	fields := [...]*float64{&r.X, &r.Y, &r.Z, &r.Yaw, &r.Pitch, &r.Roll}
	for i, f := range fields {
		*f = math.Float64frombits(binary.NativeEndian.Uint64(data[i*8:]))
	}
	r.Frame = binary.NativeEndian.Uint32(data[48:])

	return nil
}
