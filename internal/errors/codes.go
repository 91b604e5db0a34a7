package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidPort     ErrorCode = "invalid_port"
	ErrInvalidSource   ErrorCode = "invalid_source"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Application errors
	ErrInitApp       ErrorCode = "init_app_failed"
	ErrSendCommands  ErrorCode = "send_commands_failed"
	ErrPresenceLoop  ErrorCode = "presence_loop_failed"
	ErrControlLoop   ErrorCode = "control_loop_failed"
	ErrRelayLoop     ErrorCode = "relay_loop_failed"
	ErrSourceLoop    ErrorCode = "source_loop_failed"
	ErrShutdownRelay ErrorCode = "shutdown_relay_failed"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics ErrorCode = "init_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read config file",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidPort:     "Invalid port value",
	ErrInvalidSource:   "Invalid sample source",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrInitApp:         "Failed to initialize application",
	ErrSendCommands:    "Failed to send calibration commands",
	ErrPresenceLoop:    "Device presence loop stopped",
	ErrControlLoop:     "Control listener stopped",
	ErrRelayLoop:       "Relay loop stopped",
	ErrSourceLoop:      "Sample source stopped",
	ErrShutdownRelay:   "Failed to shut down relay",
	ErrTimeout:         "Operation timed out",
	ErrInitMetrics:     "Failed to initialize metrics",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
