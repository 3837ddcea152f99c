package manager

import "errors"

var (
	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("manager: closed")

	// ErrNoBroadcastAddrs means no usable non-loopback interface with a
	// broadcast address was found for discovery.
	ErrNoBroadcastAddrs = errors.New("manager: no broadcast-capable interfaces")

	// ErrTooManyZones rejects a zone array command longer than the
	// protocol's single-message window.
	ErrTooManyZones = errors.New("manager: zone array exceeds protocol window")
)
