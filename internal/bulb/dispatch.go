package bulb

import (
	"net"

	"github.com/nerrad567/lumen-core/internal/products"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// apply folds one decoded message into this record. Caller holds the
// registry write lock. Zone reports that contradict the count the
// device itself declared are dropped with prior data intact; the error
// reaches the caller's stats but the record stays valid.
func (b *Bulb) apply(env protocol.Envelope, addr *net.UDPAddr, log Logger) error {
	switch m := env.Message.(type) {
	case *protocol.StateService:
		// Discovery reply. Carries no state beyond what touch() already
		// recorded, but a device answering for a service or port we did
		// not ask about is worth surfacing.
		if m.Service != protocol.ServiceUDP || int(m.Port) != addr.Port {
			log.Warn("service mismatch in discovery reply",
				"target", b.Target, "service", m.Service, "port", m.Port, "addr", addr.String())
		}

	case *protocol.StateLabel:
		b.Name.Update(m.Label)

	case *protocol.StateLocation:
		b.Location.Update(m.Label)

	case *protocol.StateVersion:
		b.Model.Update(Model{Vendor: m.Vendor, Product: m.Product})
		if p, ok := products.Lookup(m.Vendor, m.Product); ok {
			b.Color.resolve(p.Features)
		}

	case *protocol.StateHostFirmware:
		b.HostFirmware.Update(FirmwareVersion{Major: m.VersionMajor, Minor: m.VersionMinor})

	case *protocol.StateWifiFirmware:
		b.WifiFirmware.Update(FirmwareVersion{Major: m.VersionMajor, Minor: m.VersionMinor})

	case *protocol.StatePower:
		b.PowerLevel.Update(m.Level)

	case *protocol.LightState:
		// Single-zone devices report colour, power and label in one
		// message. Multi-zone devices answer zone queries instead, so
		// this reply only applies in single mode.
		if b.Color.Mode() == ColorSingle {
			b.Color.single.Update(m.Color)
			b.PowerLevel.Update(m.Power)
			b.Name.Update(m.Label)
		}

	case *protocol.StateZone:
		return b.applyZoneWindow(int(m.Count), int(m.Index), []protocol.HSBK{m.Color}, log)

	case *protocol.StateMultiZone:
		return b.applyZoneWindow(int(m.Count), int(m.Index), m.Colors[:], log)

	case *protocol.StateExtendedColorZones:
		if int(m.ColorsCount) > protocol.MaxZones {
			log.Warn("zone report rejected",
				"target", b.Target, "colors_count", m.ColorsCount, "max", protocol.MaxZones)
			return ErrZoneIndexOutOfRange
		}
		z := Zones{
			Count:       m.ZonesCount,
			Index:       m.ZoneIndex,
			ColorsCount: m.ColorsCount,
		}
		copy(z.Colors[:], m.Colors[:m.ColorsCount])
		b.Zones.Update(z)

	case *protocol.Acknowledgement:
		// Next outbound sequence, always in 1..=255.
		b.Options.Sequence = (m.Sequence % 255) + 1

	case *protocol.Unknown:
		log.Debug("unhandled message kind", "target", b.Target, "kind", m.Kind)

	default:
		// Requests reflected back at us (our own broadcasts, or another
		// client's queries) carry nothing to fold in.
		log.Debug("ignoring non-state message", "target", b.Target)
	}
	return nil
}

// applyZoneWindow folds a legacy zone report into the multi-zone colour
// array. The sequence is allocated lazily from the first report's count;
// a window starting past the declared count is a device-side
// inconsistency and is rejected whole. The copy is clamped to the
// declared count, so a window that merely runs off the end (devices pad
// the final batch to eight zones) updates the zones that exist.
func (b *Bulb) applyZoneWindow(count, index int, colors []protocol.HSBK, log Logger) error {
	if b.Color.Mode() != ColorMulti {
		log.Debug("zone report for non-multizone record", "target", b.Target)
		return nil
	}
	if index+len(colors)-1 > count {
		log.Warn("zone report rejected",
			"target", b.Target, "index", index, "window", len(colors), "count", count)
		return ErrZoneIndexOutOfRange
	}
	zs, ok := b.Color.multi.Current()
	if !ok || len(zs) != count {
		zs = make([]*protocol.HSBK, count)
	}
	for i, c := range colors {
		pos := index + i
		if pos >= count {
			break
		}
		c := c
		zs[pos] = &c
	}
	b.Color.multi.Update(zs)
	return nil
}
