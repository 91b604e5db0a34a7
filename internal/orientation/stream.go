package orientation

// DefaultStreamSize is the sample backlog kept between the device callback and
// the relay loop.
const DefaultStreamSize = 64

// Stream is a bounded sample queue. Producers never block: when the queue is
// full the oldest sample is dropped, so a slow consumer always catches up to
// the most recent attitude.
type Stream struct {
	ch chan Sample
}

func NewStream(size int) *Stream {
	if size < 1 {
		size = 1
	}

	return &Stream{ch: make(chan Sample, size)}
}

// Offer queues s and reports whether an older sample had to be discarded.
func (s *Stream) Offer(sample Sample) (dropped bool) {
	for {
		select {
		case s.ch <- sample:
			return dropped
		default:
		}

		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}

// C returns the receive side consumed by the relay loop.
func (s *Stream) C() <-chan Sample {
	return s.ch
}

func (s *Stream) Len() int {
	return len(s.ch)
}
