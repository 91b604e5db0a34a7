package relay

import (
	"context"

	"codeberg.org/mutker/viturectl/internal/calibration"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
	"codeberg.org/mutker/viturectl/internal/telemetry"
)

// Stats receives per-frame outcomes. It is optional.
type Stats interface {
	FrameSent()
	SendFailed()
}

// Mirror receives every calibrated sample after it has been handed to the
// sender. Implementations must not block.
type Mirror interface {
	Publish(frame uint32, s orientation.Sample)
}

// Relay turns raw samples into OpenTrack records. It is driven by a single
// goroutine; only the calibration state and the latest cell are shared.
type Relay struct {
	state  *calibration.State
	latest *orientation.Latest
	sender telemetry.Sender
	mirror Mirror
	stats  Stats
	trace  bool

	frame uint32
}

type Option func(*Relay)

func WithMirror(m Mirror) Option {
	return func(r *Relay) {
		r.mirror = m
	}
}

func WithStats(s Stats) Option {
	return func(r *Relay) {
		r.stats = s
	}
}

// WithTrace logs every outgoing pose at debug level.
func WithTrace(enabled bool) Option {
	return func(r *Relay) {
		r.trace = enabled
	}
}

func New(state *calibration.State, latest *orientation.Latest, sender telemetry.Sender, opts ...Option) *Relay {
	r := &Relay{
		state:  state,
		latest: latest,
		sender: sender,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Process handles one raw sample. Send failures are not fatal; the frame
// counter advances regardless.
func (r *Relay) Process(raw orientation.Sample) {
	r.latest.Store(raw)

	pose := r.state.Transform(raw)
	frame := r.frame
	r.frame++

	rec := telemetry.FromSample(pose, frame)
	if r.trace {
		logger.Debug().
			Uint32("frame", frame).
			Float64("yaw", rec.Yaw).
			Float64("pitch", rec.Pitch).
			Float64("roll", rec.Roll).
			Msg("Sending pose")
	}

	if err := r.sender.Send(rec); err != nil {
		logger.Debug().Err(err).Uint32("frame", frame).Msg("Failed to send pose")
		if r.stats != nil {
			r.stats.SendFailed()
		}
	} else if r.stats != nil {
		r.stats.FrameSent()
	}

	if r.mirror != nil {
		r.mirror.Publish(frame, pose)
	}
}

// Run processes samples until ctx is cancelled or samples is closed.
func (r *Relay) Run(ctx context.Context, samples <-chan orientation.Sample) error {
	logger.Debug().Msg("Relay loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Uint32("frames", r.frame).Msg("Relay loop stopped")
			return nil
		case s, ok := <-samples:
			if !ok {
				logger.Debug().Msg("Sample stream closed")
				return nil
			}
			r.Process(s)
		}
	}
}

// Frame returns the number of the next frame to be sent. It is only safe
// to call from the goroutine driving Process or after Run has returned.
func (r *Relay) Frame() uint32 {
	return r.frame
}
