package shm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/viturectl/internal/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	q      atomic.Pointer[Quaternion]
	closed atomic.Bool
}

func (r *fakeReader) Read() (Quaternion, bool) {
	q := r.q.Load()
	if q == nil {
		return Quaternion{}, false
	}

	return *q, true
}

func (r *fakeReader) Close() { r.closed.Store(true) }

func TestSourceOffersConvertedSamples(t *testing.T) {
	reader := &fakeReader{}
	q := axisAngle(0, 0, 1, 90)
	reader.q.Store(&q)

	stream := orientation.NewStream(4)
	src := NewSource(reader, time.Millisecond, stream)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	select {
	case s := <-stream.C():
		assert.InDelta(t, 90, s.Yaw, 1e-3)
	case <-time.After(time.Second):
		t.Fatal("no sample received")
	}

	cancel()
	require.NoError(t, <-done)
	assert.True(t, reader.closed.Load())
}

func TestSourceSkipsUnreadableSegments(t *testing.T) {
	reader := &fakeReader{}
	stream := orientation.NewStream(4)
	src := NewSource(reader, 0, stream)
	assert.Equal(t, DefaultInterval, src.interval)

	src.poll()
	assert.Equal(t, 0, stream.Len())

	zero := Quaternion{}
	reader.q.Store(&zero)
	src.poll()
	assert.Equal(t, 0, stream.Len())
}
