package shm

import (
	"context"
	"time"

	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

const (
	// DefaultPath is the key file the vendor's shader runtime publishes under.
	DefaultPath = "/tmp/shader_runtime_imu_quat_data"

	DefaultInterval = 16 * time.Millisecond
)

// Reader yields the current quaternion from a shared segment.
type Reader interface {
	Read() (Quaternion, bool)
	Close()
}

// Source polls a Reader at a fixed interval and offers every valid
// orientation to the stream.
type Source struct {
	reader   Reader
	interval time.Duration
	out      *orientation.Stream
}

func NewSource(r Reader, interval time.Duration, out *orientation.Stream) *Source {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Source{reader: r, interval: interval, out: out}
}

// Run polls until ctx is cancelled, then detaches the reader.
func (s *Source) Run(ctx context.Context) error {
	defer s.reader.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Debug().Dur("interval", s.interval).Msg("Shared memory source started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Shared memory source stopped")
			return nil
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Source) poll() {
	q, ok := s.reader.Read()
	if !ok {
		return
	}

	sample, ok := q.Euler()
	if !ok {
		logger.Debug().Msg("Ignoring degenerate quaternion")
		return
	}

	if s.out.Offer(sample) {
		logger.Debug().Msg("Sample stream full, dropped oldest sample")
	}
}
