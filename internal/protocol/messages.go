package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Message type codes from the LIFX LAN protocol.
const (
	kindGetService              uint16 = 2
	kindStateService            uint16 = 3
	kindGetHostFirmware         uint16 = 14
	kindStateHostFirmware       uint16 = 15
	kindGetWifiFirmware         uint16 = 18
	kindStateWifiFirmware       uint16 = 19
	kindGetPower                uint16 = 20
	kindSetPower                uint16 = 21
	kindStatePower              uint16 = 22
	kindGetLabel                uint16 = 23
	kindStateLabel              uint16 = 25
	kindGetVersion              uint16 = 32
	kindStateVersion            uint16 = 33
	kindAcknowledgement         uint16 = 45
	kindGetLocation             uint16 = 48
	kindStateLocation           uint16 = 50
	kindLightGet                uint16 = 101
	kindLightSetColor           uint16 = 102
	kindLightState              uint16 = 107
	kindLightSetPower           uint16 = 117
	kindGetColorZones           uint16 = 502
	kindStateZone               uint16 = 503
	kindStateMultiZone          uint16 = 506
	kindSetExtendedColorZones   uint16 = 510
	kindGetExtendedColorZones   uint16 = 511
	kindStateExtendedColorZones uint16 = 512
)

// Protocol-level constants shared by several messages.
const (
	// ServiceUDP is the only service type this codec speaks.
	ServiceUDP uint8 = 1

	// PowerOn and PowerStandby are the two meaningful power levels.
	PowerOn      uint16 = 0xFFFF
	PowerStandby uint16 = 0

	// MaxZones is the largest zone window an extended multizone message
	// can carry.
	MaxZones = 82

	// ApplyImmediately tells a SetExtendedColorZones to take effect at once.
	ApplyImmediately uint8 = 1

	labelSize    = 32
	locationSize = 16
)

// Message is one LIFX protocol message. The set is closed: only types in
// this package implement it.
type Message interface {
	// kind returns the wire type code.
	kind() uint16

	// appendPayload appends the message payload to buf.
	appendPayload(buf []byte) []byte
}

// GetService asks a device to identify itself. Broadcast during discovery.
type GetService struct{}

func (GetService) kind() uint16                    { return kindGetService }
func (GetService) appendPayload(buf []byte) []byte { return buf }

// StateService is the discovery reply carrying the service type and port
// the device listens on.
type StateService struct {
	Service uint8
	Port    uint32
}

func (StateService) kind() uint16 { return kindStateService }
func (m StateService) appendPayload(buf []byte) []byte {
	buf = append(buf, m.Service)
	return binary.LittleEndian.AppendUint32(buf, m.Port)
}

// GetLabel queries the user-assigned device name.
type GetLabel struct{}

func (GetLabel) kind() uint16                    { return kindGetLabel }
func (GetLabel) appendPayload(buf []byte) []byte { return buf }

// StateLabel carries the user-assigned device name.
type StateLabel struct {
	Label string
}

func (StateLabel) kind() uint16 { return kindStateLabel }
func (m StateLabel) appendPayload(buf []byte) []byte {
	return appendFixedString(buf, m.Label, labelSize)
}

// GetLocation queries the device's location grouping.
type GetLocation struct{}

func (GetLocation) kind() uint16                    { return kindGetLocation }
func (GetLocation) appendPayload(buf []byte) []byte { return buf }

// StateLocation carries the location group a device belongs to.
type StateLocation struct {
	Location  [locationSize]byte
	Label     string
	UpdatedAt uint64
}

func (StateLocation) kind() uint16 { return kindStateLocation }
func (m StateLocation) appendPayload(buf []byte) []byte {
	buf = append(buf, m.Location[:]...)
	buf = appendFixedString(buf, m.Label, labelSize)
	return binary.LittleEndian.AppendUint64(buf, m.UpdatedAt)
}

// GetVersion queries the hardware vendor and product identifiers.
type GetVersion struct{}

func (GetVersion) kind() uint16                    { return kindGetVersion }
func (GetVersion) appendPayload(buf []byte) []byte { return buf }

// StateVersion carries the hardware identity used for capability lookup.
type StateVersion struct {
	Vendor  uint32
	Product uint32
}

func (StateVersion) kind() uint16 { return kindStateVersion }
func (m StateVersion) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, m.Vendor)
	buf = binary.LittleEndian.AppendUint32(buf, m.Product)
	return binary.LittleEndian.AppendUint32(buf, 0) // legacy hardware version field
}

// GetHostFirmware queries the microcontroller firmware version.
type GetHostFirmware struct{}

func (GetHostFirmware) kind() uint16                    { return kindGetHostFirmware }
func (GetHostFirmware) appendPayload(buf []byte) []byte { return buf }

// StateHostFirmware carries the microcontroller firmware build and version.
type StateHostFirmware struct {
	Build        uint64
	VersionMinor uint16
	VersionMajor uint16
}

func (StateHostFirmware) kind() uint16 { return kindStateHostFirmware }
func (m StateHostFirmware) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, m.Build)
	buf = binary.LittleEndian.AppendUint64(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, m.VersionMinor)
	return binary.LittleEndian.AppendUint16(buf, m.VersionMajor)
}

// GetWifiFirmware queries the wifi module firmware version.
type GetWifiFirmware struct{}

func (GetWifiFirmware) kind() uint16                    { return kindGetWifiFirmware }
func (GetWifiFirmware) appendPayload(buf []byte) []byte { return buf }

// StateWifiFirmware carries the wifi module firmware build and version.
type StateWifiFirmware struct {
	Build        uint64
	VersionMinor uint16
	VersionMajor uint16
}

func (StateWifiFirmware) kind() uint16 { return kindStateWifiFirmware }
func (m StateWifiFirmware) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, m.Build)
	buf = binary.LittleEndian.AppendUint64(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, m.VersionMinor)
	return binary.LittleEndian.AppendUint16(buf, m.VersionMajor)
}

// GetPower queries the device power level.
type GetPower struct{}

func (GetPower) kind() uint16                    { return kindGetPower }
func (GetPower) appendPayload(buf []byte) []byte { return buf }

// SetPower switches the device power level immediately.
type SetPower struct {
	Level uint16
}

func (SetPower) kind() uint16 { return kindSetPower }
func (m SetPower) appendPayload(buf []byte) []byte {
	return binary.LittleEndian.AppendUint16(buf, m.Level)
}

// StatePower carries the current power level.
type StatePower struct {
	Level uint16
}

func (StatePower) kind() uint16 { return kindStatePower }
func (m StatePower) appendPayload(buf []byte) []byte {
	return binary.LittleEndian.AppendUint16(buf, m.Level)
}

// Acknowledgement confirms receipt of a message sent with AckRequired.
// Sequence is lifted from the header during decode; the payload is empty.
type Acknowledgement struct {
	Sequence uint8
}

func (Acknowledgement) kind() uint16                    { return kindAcknowledgement }
func (Acknowledgement) appendPayload(buf []byte) []byte { return buf }

// LightGet queries the full light state (colour, power, label).
type LightGet struct{}

func (LightGet) kind() uint16                    { return kindLightGet }
func (LightGet) appendPayload(buf []byte) []byte { return buf }

// LightSetColor transitions the whole light to a colour over a duration
// in milliseconds.
type LightSetColor struct {
	Color    HSBK
	Duration uint32
}

func (LightSetColor) kind() uint16 { return kindLightSetColor }
func (m LightSetColor) appendPayload(buf []byte) []byte {
	buf = append(buf, 0) // reserved
	buf = m.Color.marshal(buf)
	return binary.LittleEndian.AppendUint32(buf, m.Duration)
}

// LightState is the reply to LightGet: colour, power and label in one
// message.
type LightState struct {
	Color HSBK
	Power uint16
	Label string
}

func (LightState) kind() uint16 { return kindLightState }
func (m LightState) appendPayload(buf []byte) []byte {
	buf = m.Color.marshal(buf)
	buf = binary.LittleEndian.AppendUint16(buf, 0) // reserved
	buf = binary.LittleEndian.AppendUint16(buf, m.Power)
	buf = appendFixedString(buf, m.Label, labelSize)
	return binary.LittleEndian.AppendUint64(buf, 0) // reserved
}

// LightSetPower transitions the power level over a duration in milliseconds.
type LightSetPower struct {
	Level    uint16
	Duration uint32
}

func (LightSetPower) kind() uint16 { return kindLightSetPower }
func (m LightSetPower) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, m.Level)
	return binary.LittleEndian.AppendUint32(buf, m.Duration)
}

// GetColorZones queries a range of zones on a legacy multizone device.
// Devices answer with StateZone or StateMultiZone messages.
type GetColorZones struct {
	StartIndex uint8
	EndIndex   uint8
}

func (GetColorZones) kind() uint16 { return kindGetColorZones }
func (m GetColorZones) appendPayload(buf []byte) []byte {
	return append(buf, m.StartIndex, m.EndIndex)
}

// StateZone reports the colour of a single zone out of Count total.
type StateZone struct {
	Count uint8
	Index uint8
	Color HSBK
}

func (StateZone) kind() uint16 { return kindStateZone }
func (m StateZone) appendPayload(buf []byte) []byte {
	buf = append(buf, m.Count, m.Index)
	return m.Color.marshal(buf)
}

// StateMultiZone reports eight contiguous zone colours starting at Index.
type StateMultiZone struct {
	Count  uint8
	Index  uint8
	Colors [8]HSBK
}

func (StateMultiZone) kind() uint16 { return kindStateMultiZone }
func (m StateMultiZone) appendPayload(buf []byte) []byte {
	buf = append(buf, m.Count, m.Index)
	for _, c := range m.Colors {
		buf = c.marshal(buf)
	}
	return buf
}

// SetExtendedColorZones writes a window of up to MaxZones zone colours in
// one message.
type SetExtendedColorZones struct {
	Duration    uint32
	Apply       uint8
	Index       uint16
	ColorsCount uint8
	Colors      [MaxZones]HSBK
}

func (SetExtendedColorZones) kind() uint16 { return kindSetExtendedColorZones }
func (m SetExtendedColorZones) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, m.Duration)
	buf = append(buf, m.Apply)
	buf = binary.LittleEndian.AppendUint16(buf, m.Index)
	buf = append(buf, m.ColorsCount)
	for _, c := range m.Colors {
		buf = c.marshal(buf)
	}
	return buf
}

// GetExtendedColorZones queries the whole zone array of an extended
// multizone device.
type GetExtendedColorZones struct{}

func (GetExtendedColorZones) kind() uint16                    { return kindGetExtendedColorZones }
func (GetExtendedColorZones) appendPayload(buf []byte) []byte { return buf }

// StateExtendedColorZones reports a window of the device's zone array:
// total zone count, the window's starting index, and ColorsCount colours.
type StateExtendedColorZones struct {
	ZonesCount  uint16
	ZoneIndex   uint16
	ColorsCount uint8
	Colors      [MaxZones]HSBK
}

func (StateExtendedColorZones) kind() uint16 { return kindStateExtendedColorZones }
func (m StateExtendedColorZones) appendPayload(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, m.ZonesCount)
	buf = binary.LittleEndian.AppendUint16(buf, m.ZoneIndex)
	buf = append(buf, m.ColorsCount)
	for _, c := range m.Colors {
		buf = c.marshal(buf)
	}
	return buf
}

// Unknown holds a message whose type code this codec does not understand.
// Receivers log and skip it.
type Unknown struct {
	Kind    uint16
	Payload []byte
}

func (m Unknown) kind() uint16                    { return m.Kind }
func (m Unknown) appendPayload(buf []byte) []byte { return append(buf, m.Payload...) }

// decodePayload builds the typed message for a wire type code. seq is the
// header sequence number, needed only by Acknowledgement.
func decodePayload(kind uint16, seq uint8, payload []byte) (Message, error) {
	switch kind {
	case kindGetService:
		return &GetService{}, nil
	case kindGetLabel:
		return &GetLabel{}, nil
	case kindGetLocation:
		return &GetLocation{}, nil
	case kindGetVersion:
		return &GetVersion{}, nil
	case kindGetHostFirmware:
		return &GetHostFirmware{}, nil
	case kindGetWifiFirmware:
		return &GetWifiFirmware{}, nil
	case kindGetPower:
		return &GetPower{}, nil
	case kindLightGet:
		return &LightGet{}, nil
	case kindGetExtendedColorZones:
		return &GetExtendedColorZones{}, nil
	case kindSetPower:
		if len(payload) < 2 {
			return nil, shortPayload("SetPower", payload)
		}
		return &SetPower{Level: binary.LittleEndian.Uint16(payload[0:2])}, nil
	case kindLightSetPower:
		if len(payload) < 6 {
			return nil, shortPayload("LightSetPower", payload)
		}
		return &LightSetPower{
			Level:    binary.LittleEndian.Uint16(payload[0:2]),
			Duration: binary.LittleEndian.Uint32(payload[2:6]),
		}, nil
	case kindLightSetColor:
		if len(payload) < 1+hsbkSize+4 {
			return nil, shortPayload("LightSetColor", payload)
		}
		return &LightSetColor{
			Color:    unmarshalHSBK(payload[1 : 1+hsbkSize]),
			Duration: binary.LittleEndian.Uint32(payload[1+hsbkSize : 1+hsbkSize+4]),
		}, nil
	case kindGetColorZones:
		if len(payload) < 2 {
			return nil, shortPayload("GetColorZones", payload)
		}
		return &GetColorZones{StartIndex: payload[0], EndIndex: payload[1]}, nil
	case kindSetExtendedColorZones:
		if len(payload) < 8+MaxZones*hsbkSize {
			return nil, shortPayload("SetExtendedColorZones", payload)
		}
		m := &SetExtendedColorZones{
			Duration:    binary.LittleEndian.Uint32(payload[0:4]),
			Apply:       payload[4],
			Index:       binary.LittleEndian.Uint16(payload[5:7]),
			ColorsCount: payload[7],
		}
		for i := range m.Colors {
			m.Colors[i] = unmarshalHSBK(payload[8+i*hsbkSize:])
		}
		return m, nil
	case kindStateService:
		if len(payload) < 5 {
			return nil, shortPayload("StateService", payload)
		}
		return &StateService{
			Service: payload[0],
			Port:    binary.LittleEndian.Uint32(payload[1:5]),
		}, nil
	case kindStateLabel:
		if len(payload) < labelSize {
			return nil, shortPayload("StateLabel", payload)
		}
		return &StateLabel{Label: fixedString(payload[:labelSize])}, nil
	case kindStateLocation:
		if len(payload) < locationSize+labelSize+8 {
			return nil, shortPayload("StateLocation", payload)
		}
		m := &StateLocation{
			Label:     fixedString(payload[locationSize : locationSize+labelSize]),
			UpdatedAt: binary.LittleEndian.Uint64(payload[locationSize+labelSize:]),
		}
		copy(m.Location[:], payload[:locationSize])
		return m, nil
	case kindStateVersion:
		if len(payload) < 8 {
			return nil, shortPayload("StateVersion", payload)
		}
		return &StateVersion{
			Vendor:  binary.LittleEndian.Uint32(payload[0:4]),
			Product: binary.LittleEndian.Uint32(payload[4:8]),
		}, nil
	case kindStateHostFirmware:
		if len(payload) < 20 {
			return nil, shortPayload("StateHostFirmware", payload)
		}
		return &StateHostFirmware{
			Build:        binary.LittleEndian.Uint64(payload[0:8]),
			VersionMinor: binary.LittleEndian.Uint16(payload[16:18]),
			VersionMajor: binary.LittleEndian.Uint16(payload[18:20]),
		}, nil
	case kindStateWifiFirmware:
		if len(payload) < 20 {
			return nil, shortPayload("StateWifiFirmware", payload)
		}
		return &StateWifiFirmware{
			Build:        binary.LittleEndian.Uint64(payload[0:8]),
			VersionMinor: binary.LittleEndian.Uint16(payload[16:18]),
			VersionMajor: binary.LittleEndian.Uint16(payload[18:20]),
		}, nil
	case kindStatePower:
		if len(payload) < 2 {
			return nil, shortPayload("StatePower", payload)
		}
		return &StatePower{Level: binary.LittleEndian.Uint16(payload[0:2])}, nil
	case kindAcknowledgement:
		return &Acknowledgement{Sequence: seq}, nil
	case kindLightState:
		if len(payload) < 52 {
			return nil, shortPayload("LightState", payload)
		}
		return &LightState{
			Color: unmarshalHSBK(payload[0:8]),
			Power: binary.LittleEndian.Uint16(payload[10:12]),
			Label: fixedString(payload[12 : 12+labelSize]),
		}, nil
	case kindStateZone:
		if len(payload) < 10 {
			return nil, shortPayload("StateZone", payload)
		}
		return &StateZone{
			Count: payload[0],
			Index: payload[1],
			Color: unmarshalHSBK(payload[2:10]),
		}, nil
	case kindStateMultiZone:
		if len(payload) < 2+8*hsbkSize {
			return nil, shortPayload("StateMultiZone", payload)
		}
		m := &StateMultiZone{Count: payload[0], Index: payload[1]}
		for i := range m.Colors {
			m.Colors[i] = unmarshalHSBK(payload[2+i*hsbkSize:])
		}
		return m, nil
	case kindStateExtendedColorZones:
		if len(payload) < 5+MaxZones*hsbkSize {
			return nil, shortPayload("StateExtendedColorZones", payload)
		}
		m := &StateExtendedColorZones{
			ZonesCount:  binary.LittleEndian.Uint16(payload[0:2]),
			ZoneIndex:   binary.LittleEndian.Uint16(payload[2:4]),
			ColorsCount: payload[4],
		}
		for i := range m.Colors {
			m.Colors[i] = unmarshalHSBK(payload[5+i*hsbkSize:])
		}
		return m, nil
	default:
		return &Unknown{Kind: kind, Payload: append([]byte(nil), payload...)}, nil
	}
}

// shortPayload builds a descriptive ErrShortPayload.
func shortPayload(name string, payload []byte) error {
	return fmt.Errorf("%w: %s (%d bytes)", ErrShortPayload, name, len(payload))
}

// appendFixedString appends s as a NUL-padded fixed-width field.
func appendFixedString(buf []byte, s string, size int) []byte {
	field := make([]byte, size)
	copy(field, s)
	return append(buf, field...)
}

// fixedString converts a NUL-padded field to a Go string.
func fixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}
