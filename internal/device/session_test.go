package device

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSDK struct {
	mu        sync.Mutex
	initOK    bool
	imuResult Result
	handler   func([]byte)
	inits     int
	deinits   int
	imuCalls  []bool
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{initOK: true, imuResult: ResultSuccess}
}

func (f *fakeSDK) Init(handler func([]byte)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.initOK {
		f.handler = handler
	}
	return f.initOK
}

func (f *fakeSDK) SetIMU(on bool) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imuCalls = append(f.imuCalls, on)
	return f.imuResult
}

func (f *fakeSDK) Deinit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deinits++
	f.handler = nil
}

func (f *fakeSDK) deliver(payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(payload)
	}
}

func encode(roll, pitch, yaw float32) []byte {
	buf := make([]byte, PayloadSize)
	binary.BigEndian.PutUint32(buf[0:], math.Float32bits(roll))
	binary.BigEndian.PutUint32(buf[4:], math.Float32bits(pitch))
	binary.BigEndian.PutUint32(buf[8:], math.Float32bits(yaw))
	return buf
}

func TestDecode(t *testing.T) {
	s, ok := Decode(encode(1.5, -20.25, 179.75))
	require.True(t, ok)
	assert.Equal(t, orientation.Sample{Roll: 1.5, Pitch: -20.25, Yaw: 179.75}, s)

	long := append(encode(1, 2, 3), make([]byte, 24)...)
	s, ok = Decode(long)
	require.True(t, ok)
	assert.Equal(t, orientation.Sample{Roll: 1, Pitch: 2, Yaw: 3}, s)
}

func TestDecodeShortPayload(t *testing.T) {
	for n := 0; n < PayloadSize; n++ {
		_, ok := Decode(make([]byte, n))
		assert.False(t, ok, "length %d", n)
	}
	_, ok := Decode(nil)
	assert.False(t, ok)
}

func TestSessionForwardsSamples(t *testing.T) {
	sdk := newFakeSDK()
	var got []orientation.Sample

	s, err := Open(sdk, func(sample orientation.Sample) { got = append(got, sample) })
	require.NoError(t, err)
	defer s.Close()

	sdk.deliver(encode(1, 2, 3))
	sdk.deliver([]byte{0x01, 0x02})
	sdk.deliver(encode(4, 5, 6))

	assert.Equal(t, []orientation.Sample{{Roll: 1, Pitch: 2, Yaw: 3}, {Roll: 4, Pitch: 5, Yaw: 6}}, got)
	assert.Equal(t, []bool{true}, sdk.imuCalls)
}

func TestMalformedPayloadEmitsNothing(t *testing.T) {
	sdk := newFakeSDK()
	calls := 0

	s, err := Open(sdk, func(orientation.Sample) { calls++ })
	require.NoError(t, err)
	defer s.Close()

	assert.NotPanics(t, func() { sdk.deliver(make([]byte, 11)) })
	assert.Zero(t, calls)
}

func TestCloseDeinitsOnce(t *testing.T) {
	sdk := newFakeSDK()

	s, err := Open(sdk, func(orientation.Sample) {})
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Equal(t, 1, sdk.deinits)

	// The slot is free again.
	s2, err := Open(sdk, func(orientation.Sample) {})
	require.NoError(t, err)
	s2.Close()
	assert.Equal(t, 2, sdk.deinits)
}

func TestInitFailure(t *testing.T) {
	sdk := newFakeSDK()
	sdk.initOK = false

	s, err := Open(sdk, func(orientation.Sample) {})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.HasCode(err, ErrInitFailed))
	assert.Zero(t, sdk.deinits)
	assert.Empty(t, sdk.imuCalls)

	sdk.initOK = true
	s, err = Open(sdk, func(orientation.Sample) {})
	require.NoError(t, err)
	s.Close()
}

func TestEnableIMUFailureStillDeinits(t *testing.T) {
	sdk := newFakeSDK()
	sdk.imuResult = ResultTimeout

	s, err := Open(sdk, func(orientation.Sample) {})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.HasCode(err, ErrEnableIMUFailed))
	assert.Contains(t, err.Error(), "timeout")
	assert.Equal(t, 1, sdk.deinits)

	sdk.imuResult = ResultSuccess
	s, err = Open(sdk, func(orientation.Sample) {})
	require.NoError(t, err)
	s.Close()
}

func TestSecondLiveSessionPanics(t *testing.T) {
	sdk := newFakeSDK()

	s, err := Open(sdk, func(orientation.Sample) {})
	require.NoError(t, err)
	defer s.Close()

	assert.Panics(t, func() {
		_, _ = Open(newFakeSDK(), func(orientation.Sample) {})
	})
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "crc mismatch", ResultCRCMismatch.String())
	assert.Equal(t, "result 42", Result(42).String())
}
