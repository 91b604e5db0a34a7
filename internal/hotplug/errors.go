package hotplug

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrHotplugUnsupported = errors.ErrorCode("hotplug_unsupported")
	ErrSocketFailed       = errors.ErrorCode("hotplug_socket_failed")
	ErrReceiveFailed      = errors.ErrorCode("hotplug_receive_failed")
	ErrEnumerateFailed    = errors.ErrorCode("hotplug_enumerate_failed")
	ErrWatcherClosed      = errors.ErrorCode("hotplug_watcher_closed")
)
