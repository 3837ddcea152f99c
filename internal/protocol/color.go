package protocol

import (
	"encoding/binary"
	"fmt"
)

// hsbkSize is the wire size of one HSBK colour value.
const hsbkSize = 8

// HSBK is the LIFX colour representation: hue, saturation and brightness
// scaled across the full uint16 range, plus colour temperature in Kelvin.
//
// Hue maps 0..65535 onto 0..360 degrees. Saturation 0 means white light,
// in which case Kelvin selects the temperature (typically 2500-9000).
type HSBK struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
}

// marshal appends the 8-byte wire form of the colour to buf.
func (c HSBK) marshal(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, c.Hue)
	buf = binary.LittleEndian.AppendUint16(buf, c.Saturation)
	buf = binary.LittleEndian.AppendUint16(buf, c.Brightness)
	return binary.LittleEndian.AppendUint16(buf, c.Kelvin)
}

// unmarshalHSBK reads one colour value from data.
func unmarshalHSBK(data []byte) HSBK {
	return HSBK{
		Hue:        binary.LittleEndian.Uint16(data[0:2]),
		Saturation: binary.LittleEndian.Uint16(data[2:4]),
		Brightness: binary.LittleEndian.Uint16(data[4:6]),
		Kelvin:     binary.LittleEndian.Uint16(data[6:8]),
	}
}

// String returns a compact human-readable form, e.g. "h:120° s:100% b:50% k:3500".
func (c HSBK) String() string {
	const full = 65535.0
	return fmt.Sprintf("h:%.0f° s:%.0f%% b:%.0f%% k:%d",
		float64(c.Hue)/full*360.0,
		float64(c.Saturation)/full*100.0,
		float64(c.Brightness)/full*100.0,
		c.Kelvin)
}
