package control

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrListenFailed = errors.ErrorCode("control_listen_failed")
	ErrReadFailed   = errors.ErrorCode("control_read_failed")
	ErrDialFailed   = errors.ErrorCode("control_dial_failed")
	ErrWriteFailed  = errors.ErrorCode("control_write_failed")
	ErrEncodeFailed = errors.ErrorCode("control_encode_failed")
)
