package orientation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSub(t *testing.T) {
	s := Sample{Roll: 5, Pitch: 12, Yaw: 0}
	ref := Sample{Roll: 10, Pitch: 10, Yaw: 10}

	assert.Equal(t, Sample{Roll: -5, Pitch: 2, Yaw: -10}, s.Sub(ref))
}

func TestLatestIsNotConsumed(t *testing.T) {
	var l Latest

	_, ok := l.Load()
	assert.False(t, ok)

	l.Store(Sample{Roll: 1})
	l.Store(Sample{Roll: 2})

	for i := 0; i < 2; i++ {
		s, ok := l.Load()
		require.True(t, ok)
		assert.Equal(t, float32(2), s.Roll)
	}
}

func TestStreamDropsOldestWhenFull(t *testing.T) {
	s := NewStream(2)

	assert.False(t, s.Offer(Sample{Yaw: 1}))
	assert.False(t, s.Offer(Sample{Yaw: 2}))
	assert.True(t, s.Offer(Sample{Yaw: 3}))
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, float32(2), (<-s.C()).Yaw)
	assert.Equal(t, float32(3), (<-s.C()).Yaw)
}

func TestStreamConcurrentOffer(t *testing.T) {
	s := NewStream(1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Offer(Sample{Yaw: float32(i)})
		}
	}()

	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-s.C():
			received++
		case <-done:
			break loop
		}
	}

	last := float32(-1)
	select {
	case sample := <-s.C():
		last = sample.Yaw
	default:
	}

	assert.LessOrEqual(t, received, 1000)
	if last >= 0 {
		assert.Equal(t, float32(999), last)
	}
}
