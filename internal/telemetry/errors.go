package telemetry

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrResolveFailed = errors.ErrorCode("telemetry_resolve_failed")
	ErrDialFailed    = errors.ErrorCode("telemetry_dial_failed")
	ErrSendFailed    = errors.ErrorCode("telemetry_send_failed")
	ErrShortWrite    = errors.ErrorCode("telemetry_short_write")
	ErrShortRecord   = errors.ErrorCode("telemetry_short_record")
	ErrCloseFailed   = errors.ErrorCode("telemetry_close_failed")
)
