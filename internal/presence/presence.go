package presence

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/viturectl/internal/device"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/hotplug"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

const (
	// PollInterval bounds both the kernel event wait and the queue wait of
	// one loop iteration.
	PollInterval = 20 * time.Millisecond
)

// Observer is notified of session lifecycle changes. It is optional.
type Observer interface {
	SessionOpened()
	SessionClosed()
	SessionFailed(err error)
}

// Controller starts a device session when a matching device arrives and
// tears it down when the device leaves. The session is owned by the
// goroutine running Run; nothing else touches it.
type Controller struct {
	watcher  hotplug.Watcher
	sdk      device.SDK
	out      *orientation.Stream
	observer Observer

	session *device.Session
	device  hotplug.ID
	active  atomic.Bool
}

type Option func(*Controller)

// WithObserver reports session changes to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// New registers a hotplug watcher for ids. It fails when the platform has no
// hotplug support.
func New(ids hotplug.IdentitySet, sdk device.SDK, out *orientation.Stream, opts ...Option) (*Controller, error) {
	w, err := hotplug.NewWatcher(ids)
	if err != nil {
		return nil, errors.New().Wrap(ErrWatcherFailed, err)
	}

	return NewWithWatcher(w, sdk, out, opts...), nil
}

// NewWithWatcher builds a Controller around an existing watcher.
func NewWithWatcher(w hotplug.Watcher, sdk device.SDK, out *orientation.Stream, opts ...Option) *Controller {
	c := &Controller{
		watcher: w,
		sdk:     sdk,
		out:     out,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run services hotplug events until ctx is cancelled or the watcher fails.
// Session failures are reported and do not stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	errFactory := errors.New()

	logger.Debug().Msg("Presence controller started")

	timer := time.NewTimer(PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.watcher.HandleEvents(PollInterval); err != nil {
			return errFactory.Wrap(ErrWatcherFailed, err)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(PollInterval)

		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.watcher.Events():
			c.HandleEvent(ev)
		case <-timer.C:
		}
	}
}

// HandleEvent applies one hotplug event to the session state.
func (c *Controller) HandleEvent(ev hotplug.Event) {
	logger.Debug().
		Stringer("kind", ev.Kind).
		Stringer("device", ev.Device).
		Bool("session_active", c.session != nil).
		Msg("Presence event")

	switch ev.Kind {
	case hotplug.Arrived:
		if c.session != nil {
			return
		}
		c.openSession(ev.Device)
	case hotplug.Left:
		if c.session == nil {
			return
		}
		c.closeSession("Device removed")
	}
}

func (c *Controller) openSession(id hotplug.ID) {
	session, err := device.Open(c.sdk, func(s orientation.Sample) {
		c.out.Offer(s)
	})
	if err != nil {
		logger.Error().Err(err).Stringer("device", id).Msg("Failed to start device session")
		if c.observer != nil {
			c.observer.SessionFailed(err)
		}
		return
	}

	c.session = session
	c.device = id
	c.active.Store(true)
	logger.Info().Stringer("device", id).Msg("Device attached")
	if c.observer != nil {
		c.observer.SessionOpened()
	}
}

func (c *Controller) closeSession(msg string) {
	c.session.Close()
	c.session = nil
	c.active.Store(false)
	logger.Info().Stringer("device", c.device).Msg(msg)
	c.device = hotplug.ID{}
	if c.observer != nil {
		c.observer.SessionClosed()
	}
}

// Active reports whether a device session is live. Safe to call from any
// goroutine.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// Close ends the active session, then unregisters the watcher. Call it only
// after Run has returned.
func (c *Controller) Close() error {
	if c.session != nil {
		c.closeSession("Device session closed on shutdown")
	}

	if err := c.watcher.Close(); err != nil {
		return errors.New().Wrap(ErrWatcherFailed, err)
	}

	return nil
}
