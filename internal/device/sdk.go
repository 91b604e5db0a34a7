package device

import "fmt"

// Result mirrors the status codes returned by the vendor SDK.
type Result int32

const (
	ResultTimeout         Result = -3
	ResultResponseError   Result = -2
	ResultWriteFail       Result = -1
	ResultSuccess         Result = 0
	ResultFailure         Result = 1
	ResultInvalidArgument Result = 2
	ResultNotEnoughMemory Result = 3
	ResultUnsupportedCmd  Result = 4
	ResultCRCMismatch     Result = 5
	ResultVersionMismatch Result = 6
	ResultMsgIDMismatch   Result = 7
	ResultMsgSTXMismatch  Result = 8
	ResultCodeNotWritten  Result = 9
)

var resultNames = map[Result]string{
	ResultTimeout:         "timeout",
	ResultResponseError:   "response error",
	ResultWriteFail:       "write failed",
	ResultSuccess:         "success",
	ResultFailure:         "failure",
	ResultInvalidArgument: "invalid argument",
	ResultNotEnoughMemory: "not enough memory",
	ResultUnsupportedCmd:  "unsupported command",
	ResultCRCMismatch:     "crc mismatch",
	ResultVersionMismatch: "version mismatch",
	ResultMsgIDMismatch:   "message id mismatch",
	ResultMsgSTXMismatch:  "message stx mismatch",
	ResultCodeNotWritten:  "code not written",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}

	return fmt.Sprintf("result %d", int32(r))
}

// SDK abstracts the vendor library. The library keeps global state, so at
// most one initialization may be live per process.
type SDK interface {
	// Init starts the SDK and installs handler for raw IMU payloads.
	Init(handler func(payload []byte)) bool
	// SetIMU enables or disables the IMU stream.
	SetIMU(on bool) Result
	// Deinit releases everything Init acquired.
	Deinit()
}
