package bulb

import (
	"github.com/nerrad567/lumen-core/internal/products"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// ColorMode discriminates the ColorState union.
type ColorMode int

const (
	// ColorUnknown means the device's capabilities have not been
	// resolved yet. Colour replies are ignored in this mode.
	ColorUnknown ColorMode = iota
	// ColorSingle is an ordinary single-zone light.
	ColorSingle
	// ColorMulti is a strip or beam addressing zones individually.
	ColorMulti
)

func (m ColorMode) String() string {
	switch m {
	case ColorSingle:
		return "single"
	case ColorMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// ColorState is a tagged union: exactly one variant is live at a time,
// selected once when the device's model is first resolved. Unknown is
// the initial variant; resolve() moves to Single or Multi and the
// variant is final from then on.
type ColorState struct {
	mode   ColorMode
	single RefreshableData[protocol.HSBK]
	// multi holds one optional entry per zone. A nil entry means that
	// zone has never been reported; a device answering for only part of
	// its strip must not make the rest read as black.
	multi RefreshableData[[]*protocol.HSBK]
}

// Mode returns the live variant.
func (s *ColorState) Mode() ColorMode { return s.mode }

// resolve transitions Unknown to the variant the hardware supports and
// seeds the refresh query for the new variant. Calls after the first
// are no-ops: later StateVersion replies refresh the model field but
// never flip the colour mode back.
func (s *ColorState) resolve(f products.Features) {
	if s.mode != ColorUnknown {
		return
	}
	if f.Multizone || f.ExtendedMultizone {
		s.mode = ColorMulti
		s.multi = newRefreshable[[]*protocol.HSBK](runtimeMaxAge, &protocol.GetColorZones{StartIndex: 0, EndIndex: 255})
		return
	}
	s.mode = ColorSingle
	s.single = newRefreshable[protocol.HSBK](runtimeMaxAge, &protocol.LightGet{})
}

// Single returns the last reported colour of a single-zone device.
func (s *ColorState) Single() (protocol.HSBK, error) {
	switch s.mode {
	case ColorUnknown:
		return protocol.HSBK{}, ErrCapabilityUnknown
	case ColorMulti:
		return protocol.HSBK{}, ErrWrongColorMode
	}
	c, ok := s.single.Current()
	if !ok {
		return protocol.HSBK{}, ErrNotAvailable
	}
	return c, nil
}

// Multi returns a copy of the last reported per-zone colours of a
// multi-zone device. Entries are nil for zones the device has not
// reported yet.
func (s *ColorState) Multi() ([]*protocol.HSBK, error) {
	switch s.mode {
	case ColorUnknown:
		return nil, ErrCapabilityUnknown
	case ColorSingle:
		return nil, ErrWrongColorMode
	}
	zs, ok := s.multi.Current()
	if !ok {
		return nil, ErrNotAvailable
	}
	return copyZones(zs), nil
}

// copyZones deep-copies a zone array so callers cannot mutate the
// record through the shared pointers.
func copyZones(zs []*protocol.HSBK) []*protocol.HSBK {
	out := make([]*protocol.HSBK, len(zs))
	for i, z := range zs {
		if z != nil {
			c := *z
			out[i] = &c
		}
	}
	return out
}

// needsRefresh reports whether the live variant's value is stale. An
// unresolved state never asks for a refresh: there is no variant to
// query yet.
func (s *ColorState) needsRefresh() bool {
	switch s.mode {
	case ColorSingle:
		return s.single.NeedsRefresh()
	case ColorMulti:
		return s.multi.NeedsRefresh()
	default:
		return false
	}
}

// refreshMessage returns the query for the live variant, or nil.
func (s *ColorState) refreshMessage() protocol.Message {
	switch s.mode {
	case ColorSingle:
		return s.single.RefreshMessage()
	case ColorMulti:
		return s.multi.RefreshMessage()
	default:
		return nil
	}
}
