package calibration

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	// Codec Errors
	ErrEmptyRecord     = errors.ErrorCode("calibration_empty_record")
	ErrMalformedRecord = errors.ErrorCode("calibration_malformed_record")
	ErrUnknownCommand  = errors.ErrorCode("calibration_unknown_command")
	ErrInvalidAxis     = errors.ErrorCode("calibration_invalid_axis")
)
