package shm

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrUnsupported  = errors.ErrorCode("shm_unsupported")
	ErrKeyFailed    = errors.ErrorCode("shm_key_failed")
	ErrSegmentGet   = errors.ErrorCode("shm_segment_get_failed")
	ErrAttachFailed = errors.ErrorCode("shm_attach_failed")
	ErrShortSegment = errors.ErrorCode("shm_short_segment")
)
