package mirror

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrNoBroker      = errors.ErrorCode("mirror_no_broker")
	ErrConnectFailed = errors.ErrorCode("mirror_connect_failed")
)
