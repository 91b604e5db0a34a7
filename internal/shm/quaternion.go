package shm

import (
	"encoding/binary"
	"math"

	"codeberg.org/mutker/viturectl/internal/orientation"
)

// QuaternionSize is the segment payload: x, y, z, w as float32.
const QuaternionSize = 16

type Quaternion struct {
	X, Y, Z, W float32
}

// DecodeQuaternion reads an [x y z w] float32 block in host byte order.
func DecodeQuaternion(b []byte) (Quaternion, bool) {
	if len(b) < QuaternionSize {
		return Quaternion{}, false
	}

	f := func(i int) float32 {
		return math.Float32frombits(binary.NativeEndian.Uint32(b[i*4:]))
	}

	return Quaternion{X: f(0), Y: f(1), Z: f(2), W: f(3)}, true
}

// Euler converts q to roll, pitch and yaw in degrees, for a rotation applied
// as yaw about Z, then pitch about Y, then roll about X. A zero or non-finite
// quaternion has no orientation and reports false.
func (q Quaternion) Euler() (orientation.Sample, bool) {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	n := math.Sqrt(x*x + y*y + z*z + w*w)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return orientation.Sample{}, false
	}
	x, y, z, w = x/n, y/n, z/n, w/n

	m00 := 1 - 2*(y*y+z*z)
	m01 := 2 * (x*y - w*z)
	m02 := 2 * (x*z + w*y)
	m10 := 2 * (x*y + w*z)
	m20 := 2 * (x*z - w*y)
	m21 := 2 * (y*z + w*x)
	m22 := 1 - 2*(x*x+y*y)

	var roll, pitch, yaw float64
	switch {
	case math.Abs(m20) < 1:
		pitch = -math.Asin(m20)
		c := math.Cos(pitch)
		roll = math.Atan2(m21/c, m22/c)
		yaw = math.Atan2(m10/c, m00/c)
	case m20 <= -1:
		roll = math.Atan2(m01, m02)
		pitch = math.Pi / 2
	default:
		roll = -math.Atan2(-m01, -m02)
		pitch = -math.Pi / 2
	}

	return orientation.Sample{
		Roll:  float32(roll * 180 / math.Pi),
		Pitch: float32(pitch * 180 / math.Pi),
		Yaw:   float32(yaw * 180 / math.Pi),
	}, true
}
