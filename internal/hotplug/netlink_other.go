//go:build !linux

package hotplug

import "codeberg.org/mutker/viturectl/internal/errors"

// NewWatcher is only implemented on Linux.
func NewWatcher(IdentitySet) (Watcher, error) {
	return nil, errors.New().New(ErrHotplugUnsupported)
}
