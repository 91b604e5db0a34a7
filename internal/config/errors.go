package config

import "codeberg.org/mutker/viturectl/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidArgument = errors.ErrInvalidArgument
	ErrInvalidPort     = errors.ErrInvalidPort
	ErrInvalidSource   = errors.ErrInvalidSource
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrBindFlags       = errors.ErrBindFlags
	ErrReadConfig      = errors.ErrReadConfig
)
