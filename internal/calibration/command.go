package calibration

import (
	"bytes"
	"encoding/json"
	"fmt"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

// CommandEncodingVersion identifies the record format produced by
// MarshalCommand: externally tagged JSON, one record per command.
const CommandEncodingVersion = 1

// Axis selects one of the three orientation angles.
type Axis int

const (
	Roll Axis = iota
	Pitch
	Yaw
)

var axisNames = [...]string{Roll: "Roll", Pitch: "Pitch", Yaw: "Yaw"}

func (a Axis) String() string {
	if a < Roll || a > Yaw {
		return fmt.Sprintf("Axis(%d)", int(a))
	}

	return axisNames[a]
}

func (a Axis) valid() bool {
	return a >= Roll && a <= Yaw
}

// Command mutates calibration settings. The set of implementations is closed:
// Recenter, Scale and Invert.
type Command interface {
	apply(s *Settings, current orientation.Sample, ok bool)
	fmt.Stringer
}

// Recenter replaces the reference with the current raw sample, or clears it
// when no sample is known.
type Recenter struct{}

// Scale sets the multiplier of one axis. Zero and negative factors are valid.
type Scale struct {
	Axis   Axis
	Factor float32
}

// Invert toggles sign inversion of one axis.
type Invert struct {
	Axis    Axis
	Enabled bool
}

func (Recenter) apply(s *Settings, current orientation.Sample, ok bool) {
	if !ok {
		s.Reference = nil
		return
	}
	ref := current
	s.Reference = &ref
}

func (c Scale) apply(s *Settings, _ orientation.Sample, _ bool) {
	if !c.Axis.valid() {
		return
	}
	s.Scale[c.Axis] = c.Factor
}

func (c Invert) apply(s *Settings, _ orientation.Sample, _ bool) {
	if !c.Axis.valid() {
		return
	}
	s.Invert[c.Axis] = c.Enabled
}

func (Recenter) String() string { return "Recenter" }

func (c Scale) String() string { return fmt.Sprintf("Scale%s(%g)", c.Axis, c.Factor) }

func (c Invert) String() string { return fmt.Sprintf("Invert%s(%t)", c.Axis, c.Enabled) }

// MarshalCommand encodes c as a single control record, e.g. "Recenter",
// {"ScalePitch":2} or {"InvertYaw":true}.
func MarshalCommand(c Command) ([]byte, error) {
	errFactory := errors.New()

	switch c := c.(type) {
	case Recenter:
		return json.Marshal("Recenter")
	case Scale:
		if !c.Axis.valid() {
			return nil, errFactory.WithData(ErrInvalidAxis, int(c.Axis))
		}
		return json.Marshal(map[string]float32{"Scale" + c.Axis.String(): c.Factor})
	case Invert:
		if !c.Axis.valid() {
			return nil, errFactory.WithData(ErrInvalidAxis, int(c.Axis))
		}
		return json.Marshal(map[string]bool{"Invert" + c.Axis.String(): c.Enabled})
	default:
		return nil, errFactory.WithData(ErrUnknownCommand, fmt.Sprintf("%T", c))
	}
}

// ParseCommand decodes one control record. It never panics; anything that is
// not a recognised command yields an error the caller is expected to skip.
func ParseCommand(record []byte) (Command, error) {
	errFactory := errors.New()

	record = bytes.TrimSpace(record)
	if len(record) == 0 {
		return nil, errFactory.New(ErrEmptyRecord)
	}

	var tag string
	if err := json.Unmarshal(record, &tag); err == nil {
		if tag == "Recenter" {
			return Recenter{}, nil
		}
		return nil, errFactory.WithData(ErrUnknownCommand, tag)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(record, &tagged); err != nil {
		return nil, errFactory.Wrap(ErrMalformedRecord, err)
	}
	if len(tagged) != 1 {
		return nil, errFactory.WithData(ErrMalformedRecord, string(record))
	}

	for name, value := range tagged {
		if axis, ok := axisFromTag(name, "Scale"); ok {
			var factor float32
			if err := json.Unmarshal(value, &factor); err != nil {
				return nil, errFactory.Wrap(ErrMalformedRecord, err)
			}
			return Scale{Axis: axis, Factor: factor}, nil
		}
		if axis, ok := axisFromTag(name, "Invert"); ok {
			var enabled bool
			if err := json.Unmarshal(value, &enabled); err != nil {
				return nil, errFactory.Wrap(ErrMalformedRecord, err)
			}
			return Invert{Axis: axis, Enabled: enabled}, nil
		}
		return nil, errFactory.WithData(ErrUnknownCommand, name)
	}

	return nil, errFactory.WithData(ErrMalformedRecord, string(record))
}

func axisFromTag(tag, prefix string) (Axis, bool) {
	if len(tag) <= len(prefix) || tag[:len(prefix)] != prefix {
		return 0, false
	}
	for axis, name := range axisNames {
		if tag[len(prefix):] == name {
			return Axis(axis), true
		}
	}

	return 0, false
}
