package bulb

import (
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/lumen-core/internal/products"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// Model identifies the hardware as reported by StateVersion.
type Model struct {
	Vendor  uint32
	Product uint32
}

// FirmwareVersion is a major.minor pair from a firmware state reply.
type FirmwareVersion struct {
	Major uint16
	Minor uint16
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Zones is the wholesale zone snapshot reported by extended multi-zone
// hardware: the device's total zone count plus one window of colours.
type Zones struct {
	Count       uint16
	Index       uint16
	ColorsCount uint8
	Colors      [protocol.MaxZones]protocol.HSBK
}

// Bulb is everything known about one device. All fields are mutated
// only by Registry.Apply under the registry write lock; readers hold at
// least the read lock.
type Bulb struct {
	// Target is the device's 64-bit identity, echoed into every frame
	// sent to it.
	Target uint64
	// Addr is the source address of the most recent datagram.
	Addr *net.UDPAddr
	// LastSeen is the arrival time of the most recent datagram.
	LastSeen time.Time
	// Options carries the per-device send parameters, including the
	// rolling sequence counter advanced by acknowledgements.
	Options protocol.Options

	Name         RefreshableData[string]
	Model        RefreshableData[Model]
	Location     RefreshableData[string]
	HostFirmware RefreshableData[FirmwareVersion]
	WifiFirmware RefreshableData[FirmwareVersion]
	PowerLevel   RefreshableData[uint16]
	Zones        RefreshableData[Zones]
	Color        ColorState
}

func newBulb(source uint32, target uint64, addr *net.UDPAddr) *Bulb {
	return &Bulb{
		Target:   target,
		Addr:     addr,
		LastSeen: time.Now(),
		Options: protocol.Options{
			Target:      target,
			Source:      source,
			AckRequired: true,
			ResRequired: true,
		},
		Name:         newRefreshable[string](metadataMaxAge, &protocol.GetLabel{}),
		Model:        newRefreshable[Model](metadataMaxAge, &protocol.GetVersion{}),
		Location:     newRefreshable[string](metadataMaxAge, &protocol.GetLocation{}),
		HostFirmware: newRefreshable[FirmwareVersion](metadataMaxAge, &protocol.GetHostFirmware{}),
		WifiFirmware: newRefreshable[FirmwareVersion](metadataMaxAge, &protocol.GetWifiFirmware{}),
		PowerLevel:   newRefreshable[uint16](runtimeMaxAge, &protocol.GetPower{}),
		Zones:        newRefreshable[Zones](runtimeMaxAge, &protocol.GetExtendedColorZones{}),
	}
}

// touch records that a datagram from addr just arrived for this bulb.
func (b *Bulb) touch(addr *net.UDPAddr) {
	b.Addr = addr
	b.LastSeen = time.Now()
}

// features resolves the hardware capabilities, if the model is known.
func (b *Bulb) features() (products.Features, bool) {
	m, ok := b.Model.Current()
	if !ok {
		return products.Features{}, false
	}
	p, ok := products.Lookup(m.Vendor, m.Product)
	if !ok {
		return products.Features{}, false
	}
	return p.Features, true
}

// ZoneCount returns the total zone count from the extended snapshot.
func (b *Bulb) ZoneCount() (uint16, error) {
	z, ok := b.Zones.Current()
	if !ok {
		return 0, ErrNotAvailable
	}
	return z.Count, nil
}

// ZoneColors returns a copy of the colours in the extended snapshot
// window.
func (b *Bulb) ZoneColors() ([]protocol.HSBK, error) {
	z, ok := b.Zones.Current()
	if !ok {
		return nil, ErrNotAvailable
	}
	out := make([]protocol.HSBK, z.ColorsCount)
	copy(out, z.Colors[:z.ColorsCount])
	return out, nil
}

// pendingQueries collects the refresh messages for every stale field,
// in a fixed priority order: identity metadata first, then runtime
// state. The extended zone snapshot is queried only on hardware that
// understands the extended messages.
func (b *Bulb) pendingQueries() []protocol.Message {
	var msgs []protocol.Message
	add := func(stale bool, msg protocol.Message) {
		if stale && msg != nil {
			msgs = append(msgs, msg)
		}
	}
	add(b.Name.NeedsRefresh(), b.Name.RefreshMessage())
	add(b.Model.NeedsRefresh(), b.Model.RefreshMessage())
	add(b.Location.NeedsRefresh(), b.Location.RefreshMessage())
	add(b.HostFirmware.NeedsRefresh(), b.HostFirmware.RefreshMessage())
	add(b.WifiFirmware.NeedsRefresh(), b.WifiFirmware.RefreshMessage())
	add(b.PowerLevel.NeedsRefresh(), b.PowerLevel.RefreshMessage())
	add(b.Color.needsRefresh(), b.Color.refreshMessage())
	if f, ok := b.features(); ok && f.ExtendedMultizone {
		add(b.Zones.NeedsRefresh(), b.Zones.RefreshMessage())
	}
	return msgs
}

// String renders a compact one-line summary for logs.
func (b *Bulb) String() string {
	name := "?"
	if n, ok := b.Name.Current(); ok {
		name = n
	}
	power := "?"
	if p, ok := b.PowerLevel.Current(); ok {
		if p == protocol.PowerStandby {
			power = "off"
		} else {
			power = "on"
		}
	}
	return fmt.Sprintf("%016X %q %s power=%s mode=%s", b.Target, name, b.Addr, power, b.Color.Mode())
}
