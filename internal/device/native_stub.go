//go:build !viture || !cgo

package device

import (
	"sync"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
)

type unavailableSDK struct {
	warnOnce *sync.Once
}

// NativeSDK returns an SDK that always fails to initialize. Build with
// -tags viture and cgo enabled to link the vendor library.
func NativeSDK() SDK {
	return unavailableSDK{warnOnce: &sync.Once{}}
}

func (s unavailableSDK) Init(func(payload []byte)) bool {
	s.warnOnce.Do(func() {
		logger.ErrorWithCode(errors.New().New(ErrSDKUnavailable)).
			Msg("Built without the vendor SDK; rebuild with -tags viture")
	})

	return false
}

func (unavailableSDK) SetIMU(bool) Result {
	return ResultUnsupportedCmd
}

func (unavailableSDK) Deinit() {}
