//go:build linux

package hotplug

import (
	"sync"
	"time"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
	"golang.org/x/sys/unix"
)

const (
	// kernelUeventGroup is the multicast group the kernel itself sends to;
	// group 2 carries udevd's re-broadcasts.
	kernelUeventGroup = 1
	eventQueueSize    = 64
	receiveBufferSize = 1 << 20
	messageBufferSize = 64 << 10
)

type netlinkWatcher struct {
	ids    IdentitySet
	fd     int
	buf    []byte
	events chan Event
	mu     sync.Mutex
	closed bool
}

// NewWatcher subscribes to kernel USB uevents and queues an Arrived event
// for every matching device that is already attached.
func NewWatcher(ids IdentitySet) (Watcher, error) {
	return newNetlinkWatcher(ids, SysfsUSBDevices)
}

func newNetlinkWatcher(ids IdentitySet, sysfsRoot string) (*netlinkWatcher, error) {
	errFactory := errors.New()

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, errFactory.Wrap(ErrHotplugUnsupported, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelUeventGroup}); err != nil {
		unix.Close(fd)
		return nil, errFactory.Wrap(ErrSocketFailed, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, receiveBufferSize); err != nil {
		logger.Debug().Err(err).Msg("Failed to enlarge uevent receive buffer")
	}

	w := &netlinkWatcher{
		ids:    ids,
		fd:     fd,
		buf:    make([]byte, messageBufferSize),
		events: make(chan Event, eventQueueSize),
	}

	// Enumerate after subscribing, so a device plugged in between the two
	// steps is seen at least once.
	attached, err := Enumerate(sysfsRoot, ids)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to enumerate attached USB devices")
	}
	for _, id := range attached {
		logger.Debug().Stringer("device", id).Msg("Found attached device")
		w.push(Event{Kind: Arrived, Device: id})
	}

	return w, nil
}

func (w *netlinkWatcher) Events() <-chan Event {
	return w.events
}

func (w *netlinkWatcher) HandleEvents(timeout time.Duration) error {
	errFactory := errors.New()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errFactory.New(ErrWatcherClosed)
	}

	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err == unix.EINTR || n == 0 {
		return nil
	}
	if err != nil {
		return errFactory.Wrap(ErrReceiveFailed, err)
	}

	for {
		n, from, err := unix.Recvfrom(w.fd, w.buf, 0)
		switch {
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return nil
		case err == unix.EINTR:
			continue
		case err == unix.ENOBUFS:
			logger.Warn().Msg("Uevent queue overflowed, some hotplug events were lost")
			continue
		case err != nil:
			return errFactory.Wrap(ErrReceiveFailed, err)
		}

		// Only trust messages sent by the kernel.
		if sa, ok := from.(*unix.SockaddrNetlink); !ok || sa.Pid != 0 {
			continue
		}

		w.handle(w.buf[:n])
	}
}

func (w *netlinkWatcher) handle(msg []byte) {
	ev, ok := ParseUevent(msg)
	if !ok {
		return
	}

	logger.Debug().
		Stringer("kind", ev.Kind).
		Stringer("device", ev.Device).
		Msg("Hotplug event received")

	if !w.ids.Matches(ev.Device) {
		return
	}

	w.push(ev)
}

func (w *netlinkWatcher) push(ev Event) {
	select {
	case w.events <- ev:
	default:
		logger.Warn().Stringer("kind", ev.Kind).Msg("Hotplug event queue full, dropping event")
	}
}

func (w *netlinkWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := unix.Close(w.fd); err != nil {
		return errors.New().Wrap(ErrSocketFailed, err)
	}

	return nil
}
