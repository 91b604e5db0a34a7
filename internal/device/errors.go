package device

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrInitFailed      = errors.ErrorCode("device_init_failed")
	ErrEnableIMUFailed = errors.ErrorCode("device_enable_imu_failed")
	ErrSDKUnavailable  = errors.ErrorCode("device_sdk_unavailable")
)
