package relay

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/viturectl/internal/calibration"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/orientation"
	"codeberg.org/mutker/viturectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	records []telemetry.Record
	fail    bool
}

func (f *fakeSender) Send(rec telemetry.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New().New(telemetry.ErrSendFailed)
	}
	f.records = append(f.records, rec)

	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) sent() []telemetry.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]telemetry.Record(nil), f.records...)
}

type fakeStats struct {
	sent, failed int
}

func (s *fakeStats) FrameSent()  { s.sent++ }
func (s *fakeStats) SendFailed() { s.failed++ }

type fakeMirror struct {
	frames []uint32
	poses  []orientation.Sample
}

func (m *fakeMirror) Publish(frame uint32, s orientation.Sample) {
	m.frames = append(m.frames, frame)
	m.poses = append(m.poses, s)
}

func TestProcessTransformsAndNumbersFrames(t *testing.T) {
	state := calibration.New()
	state.Apply([]calibration.Command{
		calibration.Recenter{},
		calibration.Scale{Axis: calibration.Pitch, Factor: 2},
		calibration.Invert{Axis: calibration.Yaw, Enabled: true},
	}, orientation.Sample{Roll: 10, Pitch: 20, Yaw: 30}, true)

	latest := &orientation.Latest{}
	sender := &fakeSender{}
	r := New(state, latest, sender)

	r.Process(orientation.Sample{Roll: 10, Pitch: 20, Yaw: 30})
	r.Process(orientation.Sample{Roll: 15, Pitch: 25, Yaw: 40})

	recs := sender.sent()
	require.Len(t, recs, 2)
	assert.Equal(t, telemetry.Record{Frame: 0}, recs[0])
	assert.Equal(t, telemetry.Record{Roll: 5, Pitch: 10, Yaw: -10, Frame: 1}, recs[1])

	raw, ok := latest.Load()
	require.True(t, ok)
	assert.Equal(t, orientation.Sample{Roll: 15, Pitch: 25, Yaw: 40}, raw)
	assert.Equal(t, uint32(2), r.Frame())
}

func TestProcessDefaultCalibrationPassesThrough(t *testing.T) {
	sender := &fakeSender{}
	r := New(calibration.New(), &orientation.Latest{}, sender)

	r.Process(orientation.Sample{Roll: 1.5, Pitch: -2.25, Yaw: 90})

	recs := sender.sent()
	require.Len(t, recs, 1)
	assert.Equal(t, telemetry.Record{Roll: 1.5, Pitch: -2.25, Yaw: 90}, recs[0])
}

func TestSendFailureAdvancesFrame(t *testing.T) {
	sender := &fakeSender{fail: true}
	stats := &fakeStats{}
	mirror := &fakeMirror{}
	r := New(calibration.New(), &orientation.Latest{}, sender, WithStats(stats), WithMirror(mirror))

	r.Process(orientation.Sample{Yaw: 1})
	sender.fail = false
	r.Process(orientation.Sample{Yaw: 2})

	recs := sender.sent()
	require.Len(t, recs, 1)
	assert.Equal(t, uint32(1), recs[0].Frame)
	assert.Equal(t, 1, stats.sent)
	assert.Equal(t, 1, stats.failed)
	assert.Equal(t, []uint32{0, 1}, mirror.frames)
}

func TestFrameCounterWraps(t *testing.T) {
	sender := &fakeSender{}
	r := New(calibration.New(), &orientation.Latest{}, sender)
	r.frame = math.MaxUint32

	r.Process(orientation.Sample{})
	r.Process(orientation.Sample{})

	recs := sender.sent()
	require.Len(t, recs, 2)
	assert.Equal(t, uint32(math.MaxUint32), recs[0].Frame)
	assert.Equal(t, uint32(0), recs[1].Frame)
}

func TestMirrorReceivesCalibratedPose(t *testing.T) {
	state := calibration.New()
	state.Apply([]calibration.Command{calibration.Invert{Axis: calibration.Roll, Enabled: true}}, orientation.Sample{}, false)
	mirror := &fakeMirror{}
	r := New(state, &orientation.Latest{}, &fakeSender{}, WithMirror(mirror))

	r.Process(orientation.Sample{Roll: 3, Pitch: 4, Yaw: 5})

	require.Len(t, mirror.poses, 1)
	assert.Equal(t, orientation.Sample{Roll: -3, Pitch: 4, Yaw: 5}, mirror.poses[0])
}

func TestRunDrainsStreamUntilCancelled(t *testing.T) {
	sender := &fakeSender{}
	stream := orientation.NewStream(4)
	r := New(calibration.New(), &orientation.Latest{}, sender, WithTrace(true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, stream.C()) }()

	stream.Offer(orientation.Sample{Yaw: 1})
	stream.Offer(orientation.Sample{Yaw: 2})
	require.Eventually(t, func() bool { return len(sender.sent()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunStopsWhenStreamCloses(t *testing.T) {
	samples := make(chan orientation.Sample)
	close(samples)

	r := New(calibration.New(), &orientation.Latest{}, &fakeSender{})
	assert.NoError(t, r.Run(context.Background(), samples))
}
