package events

import "errors"

var (
	// ErrInvalidDeviceID indicates a command topic whose device segment
	// is not a hexadecimal identity.
	ErrInvalidDeviceID = errors.New("events: invalid device id in topic")

	// ErrUnknownAction indicates a command with an unrecognised action.
	ErrUnknownAction = errors.New("events: unknown command action")

	// ErrMissingField indicates a command missing a required field for
	// its action.
	ErrMissingField = errors.New("events: command missing required field")
)
