package calibration

import (
	"sync"

	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

// Settings is a snapshot of the calibration applied to outgoing samples.
type Settings struct {
	Reference *orientation.Sample
	Scale     [3]float32
	Invert    [3]bool
}

// DefaultSettings returns unit scale, no inversion and no reference.
func DefaultSettings() Settings {
	return Settings{Scale: [3]float32{1, 1, 1}}
}

func (s Settings) transform(in orientation.Sample) orientation.Sample {
	if s.Reference != nil {
		in = in.Sub(*s.Reference)
	}

	v := [3]float32{in.Roll, in.Pitch, in.Yaw}
	for axis := range v {
		v[axis] *= s.Scale[axis]
		if s.Invert[axis] {
			v[axis] = -v[axis]
		}
	}

	return orientation.Sample{Roll: v[Roll], Pitch: v[Pitch], Yaw: v[Yaw]}
}

// State is the calibration shared between the control listener, which
// mutates it, and the relay loop, which reads it for every sample. All fields
// live behind one mutex so a transform never sees half of a batch.
type State struct {
	mu       sync.Mutex
	settings Settings
}

func New() *State {
	return &State{settings: DefaultSettings()}
}

// Apply runs batch in order. current is the last raw sample known to the
// caller and is only consulted by Recenter.
func (s *State) Apply(batch []Command, current orientation.Sample, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cmd := range batch {
		cmd.apply(&s.settings, current, ok)
		logger.Debug().Stringer("command", cmd).Msg("Applied calibration command")
	}

	if s.settings.Reference != nil {
		logger.Debug().
			Float32("ref_roll", s.settings.Reference.Roll).
			Float32("ref_pitch", s.settings.Reference.Pitch).
			Float32("ref_yaw", s.settings.Reference.Yaw).
			Msg("Calibration reference")
	}
}

// Transform applies reference subtraction, then scaling, then inversion.
func (s *State) Transform(in orientation.Sample) orientation.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settings.transform(in)
}

// Settings returns a copy of the current calibration.
func (s *State) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.settings
	if out.Reference != nil {
		ref := *out.Reference
		out.Reference = &ref
	}

	return out
}
