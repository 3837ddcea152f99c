package telemetry

import "errors"

var (
	// ErrConnectionFailed is returned when the initial ping fails.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrDisabled is returned when the config disables InfluxDB.
	ErrDisabled = errors.New("telemetry: disabled in configuration")
)
