package protocol

import "errors"

// Domain errors for the protocol codec.
var (
	// ErrShortDatagram is returned when a datagram is smaller than the
	// fixed 36-byte LIFX header.
	ErrShortDatagram = errors.New("protocol: datagram shorter than header")

	// ErrSizeMismatch is returned when the size field in the frame header
	// does not match the actual datagram length.
	ErrSizeMismatch = errors.New("protocol: frame size mismatch")

	// ErrShortPayload is returned when a message payload is truncated.
	ErrShortPayload = errors.New("protocol: payload too short")

	// ErrBadProtocol is returned when the frame does not carry the LIFX
	// protocol number (1024) or the addressable bit is clear.
	ErrBadProtocol = errors.New("protocol: not a LIFX frame")
)
