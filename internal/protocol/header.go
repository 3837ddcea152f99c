package protocol

import "encoding/binary"

// Wire-level constants.
const (
	// Port is the well-known UDP port LIFX devices listen on.
	Port = 56700

	// HeaderSize is the fixed size of the LIFX packet header:
	// frame (8) + frame address (16) + protocol header (12).
	HeaderSize = 36

	// protocolNumber is the LIFX protocol identifier carried in the
	// low 12 bits of the frame flags field.
	protocolNumber = 1024

	// addressableFlag marks the frame as carrying a frame address block.
	// Always set on LIFX packets.
	addressableFlag = 1 << 12

	// taggedFlag marks a broadcast frame addressed to all devices.
	// Set when Target is zero (discovery).
	taggedFlag = 1 << 13

	// resRequiredFlag and ackRequiredFlag live in the frame address
	// flags byte and ask the device for a State reply / Acknowledgement.
	resRequiredFlag = 1 << 0
	ackRequiredFlag = 1 << 1
)

// Options carries the header fields that identify sender, receiver and
// sequencing for an outbound message. It corresponds to everything in the
// header that is not determined by the message itself.
type Options struct {
	// Target is the 64-bit device identity (serial in the low 48 bits).
	// Zero addresses all devices and sets the tagged bit (broadcast).
	Target uint64

	// AckRequired asks the device to send an Acknowledgement.
	AckRequired bool

	// ResRequired asks the device to send the matching State reply.
	ResRequired bool

	// Source tags outbound messages with the logical sender; devices echo
	// it in replies so unrelated clients on the segment can be told apart.
	Source uint32

	// Sequence is the rolling message counter echoed in acknowledgements.
	Sequence uint8
}

// Envelope is a decoded datagram: the header fields a receiver dispatches
// on plus the typed message.
type Envelope struct {
	// Target is the sender's device identity from the frame address.
	Target uint64

	// Source echoes the session tag the query was sent with.
	Source uint32

	// Sequence echoes the sequence number of the triggering message.
	Sequence uint8

	// Message is the decoded payload. Unrecognised types decode to *Unknown.
	Message Message
}

// Encode serialises a message into a complete datagram using the supplied
// header options.
func Encode(opts Options, msg Message) []byte {
	payload := msg.appendPayload(nil)

	buf := make([]byte, 0, HeaderSize+len(payload))

	// Frame: size, flags (origin=0, tagged, addressable, protocol), source.
	flags := uint16(protocolNumber | addressableFlag)
	if opts.Target == 0 {
		flags |= taggedFlag
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(HeaderSize+len(payload)))
	buf = binary.LittleEndian.AppendUint16(buf, flags)
	buf = binary.LittleEndian.AppendUint32(buf, opts.Source)

	// Frame address: target, 6 reserved bytes, ack/res flags, sequence.
	buf = binary.LittleEndian.AppendUint64(buf, opts.Target)
	buf = append(buf, 0, 0, 0, 0, 0, 0)
	var fa byte
	if opts.ResRequired {
		fa |= resRequiredFlag
	}
	if opts.AckRequired {
		fa |= ackRequiredFlag
	}
	buf = append(buf, fa, opts.Sequence)

	// Protocol header: reserved, type, reserved.
	buf = binary.LittleEndian.AppendUint64(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, msg.kind())
	buf = binary.LittleEndian.AppendUint16(buf, 0)

	return append(buf, payload...)
}

// Decode parses a datagram into an Envelope.
//
// Unknown message types are not an error: they decode to *Unknown so the
// caller can log and move on. Truncated or non-LIFX frames return an error.
func Decode(data []byte) (Envelope, error) {
	if len(data) < HeaderSize {
		return Envelope{}, ErrShortDatagram
	}

	size := binary.LittleEndian.Uint16(data[0:2])
	if int(size) != len(data) {
		return Envelope{}, ErrSizeMismatch
	}

	flags := binary.LittleEndian.Uint16(data[2:4])
	if flags&0x0FFF != protocolNumber || flags&addressableFlag == 0 {
		return Envelope{}, ErrBadProtocol
	}

	env := Envelope{
		Source:   binary.LittleEndian.Uint32(data[4:8]),
		Target:   binary.LittleEndian.Uint64(data[8:16]),
		Sequence: data[23],
	}

	kind := binary.LittleEndian.Uint16(data[32:34])
	msg, err := decodePayload(kind, env.Sequence, data[HeaderSize:])
	if err != nil {
		return Envelope{}, err
	}
	env.Message = msg

	return env, nil
}
