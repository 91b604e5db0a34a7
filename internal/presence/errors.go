package presence

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrWatcherFailed = errors.ErrorCode("presence_watcher_failed")
)
