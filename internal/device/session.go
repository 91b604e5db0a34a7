package device

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

// PayloadSize is the minimum IMU payload: three big-endian float32.
const PayloadSize = 12

// live is set while a Session owns the SDK. The vendor library is a process
// singleton, so this flag is process wide as well.
var live atomic.Bool

// Session is one lifetime of the vendor SDK, from Init to Deinit.
type Session struct {
	sdk       SDK
	closeOnce sync.Once
}

// Open initializes sdk and enables the IMU stream, forwarding every decoded
// sample to sink. sink runs on the SDK's callback thread and must not block.
//
// Opening a session while another one is alive is a programming error and
// panics.
func Open(sdk SDK, sink func(orientation.Sample)) (*Session, error) {
	errFactory := errors.New()

	if !live.CompareAndSwap(false, true) {
		panic("device: session opened while another session is alive")
	}

	handler := func(payload []byte) {
		if s, ok := Decode(payload); ok {
			sink(s)
		}
	}

	if !sdk.Init(handler) {
		live.Store(false)
		return nil, errFactory.New(ErrInitFailed)
	}

	s := &Session{sdk: sdk}

	if res := sdk.SetIMU(true); res != ResultSuccess {
		s.Close()
		return nil, errFactory.WithData(ErrEnableIMUFailed, res.String())
	}

	logger.Debug().Msg("Device session opened")

	return s, nil
}

// Close deinitializes the SDK. Only the first call has an effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.sdk.Deinit()
		live.Store(false)
		logger.Debug().Msg("Device session closed")
	})
}

// Decode converts a raw IMU payload into a Sample. Payloads shorter than
// PayloadSize are rejected.
func Decode(payload []byte) (orientation.Sample, bool) {
	if len(payload) < PayloadSize {
		return orientation.Sample{}, false
	}

	return orientation.Sample{
		Roll:  math.Float32frombits(binary.BigEndian.Uint32(payload[0:4])),
		Pitch: math.Float32frombits(binary.BigEndian.Uint32(payload[4:8])),
		Yaw:   math.Float32frombits(binary.BigEndian.Uint32(payload[8:12])),
	}, true
}
