// Package protocol implements the LIFX LAN wire format for Lumen Core.
//
// LIFX devices speak a binary UDP protocol on port 56700. Every packet
// starts with a fixed 36-byte header (frame, frame address, protocol
// header) followed by a message-specific payload. All multi-byte fields
// are little-endian.
//
// # Architecture
//
// The package is a pure codec: it converts between typed Message values
// and raw datagram bytes. It performs no I/O; sockets are owned by the
// manager package.
//
//	┌─────────────────┐   Encode/Decode   ┌─────────────────┐
//	│     manager     │◄─────────────────►│    protocol     │
//	│ (UDP send/recv) │                   │   (this pkg)    │
//	└─────────────────┘                   └─────────────────┘
//
// # Usage
//
//	opts := protocol.Options{Source: 0x6c756d65, Target: serial}
//	data := protocol.Encode(opts, &protocol.GetPower{})
//	// ... send data, receive reply ...
//	env, err := protocol.Decode(reply)
//	if err != nil {
//	    return err
//	}
//	if sp, ok := env.Message.(*protocol.StatePower); ok {
//	    fmt.Println(sp.Level)
//	}
//
// # Message Set
//
// The supported messages cover device discovery (GetService/StateService),
// metadata (label, location, version, firmware), power, single-light colour
// state, and the three multizone reply families (StateZone, StateMultiZone,
// StateExtendedColorZones). Unrecognised message types decode into an
// *Unknown value so callers can log and skip them without failing the
// receive loop.
//
// # References
//
//   - LIFX LAN protocol: https://lan.developer.lifx.com/docs
package protocol
