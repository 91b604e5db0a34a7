package orientation

import (
	"fmt"
	"sync/atomic"
)

// Sample is the roll/pitch/yaw attitude reported by the device for one tick,
// in degrees.
type Sample struct {
	Roll  float32 `json:"roll"`
	Pitch float32 `json:"pitch"`
	Yaw   float32 `json:"yaw"`
}

// Sub returns the componentwise difference s - ref.
func (s Sample) Sub(ref Sample) Sample {
	return Sample{
		Roll:  s.Roll - ref.Roll,
		Pitch: s.Pitch - ref.Pitch,
		Yaw:   s.Yaw - ref.Yaw,
	}
}

func (s Sample) String() string {
	return fmt.Sprintf("roll=%.3f pitch=%.3f yaw=%.3f", s.Roll, s.Pitch, s.Yaw)
}

// Latest holds the most recently observed raw sample. Store never blocks and
// Load does not consume the value.
type Latest struct {
	v atomic.Pointer[Sample]
}

func (l *Latest) Store(s Sample) {
	l.v.Store(&s)
}

// Load returns the last stored sample, or false if none was stored yet.
func (l *Latest) Load() (Sample, bool) {
	p := l.v.Load()
	if p == nil {
		return Sample{}, false
	}

	return *p, true
}
