package bulb

import "errors"

var (
	// ErrNotAvailable is returned by accessors whose backing field has
	// never been populated by a device reply.
	ErrNotAvailable = errors.New("bulb: data not available")

	// ErrCapabilityUnknown is returned when a colour accessor is used
	// before the device's hardware capabilities have been resolved.
	ErrCapabilityUnknown = errors.New("bulb: capability not yet known")

	// ErrWrongColorMode is returned when a zone accessor is used on a
	// single-zone device or vice versa.
	ErrWrongColorMode = errors.New("bulb: wrong colour mode for accessor")

	// ErrZoneIndexOutOfRange rejects a zone report whose index range
	// does not fit inside the zone count the device itself declared.
	ErrZoneIndexOutOfRange = errors.New("bulb: zone index out of range")

	// ErrUnknownDevice is returned for commands aimed at an identity
	// the registry has never seen.
	ErrUnknownDevice = errors.New("bulb: unknown device")
)
