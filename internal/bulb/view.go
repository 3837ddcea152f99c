package bulb

import (
	"fmt"
	"time"

	"github.com/nerrad567/lumen-core/internal/products"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// View is an immutable snapshot of one device, shaped for the HTTP API
// and event payloads. Pointer fields are nil until the corresponding
// state has been reported at least once.
type View struct {
	ID           string         `json:"id"`
	Target       uint64         `json:"target"`
	Addr         string         `json:"addr"`
	LastSeen     time.Time      `json:"last_seen"`
	Label        *string        `json:"label,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Vendor       *uint32        `json:"vendor,omitempty"`
	Product      *uint32        `json:"product,omitempty"`
	ProductName  string         `json:"product_name,omitempty"`
	HostFirmware string         `json:"host_firmware,omitempty"`
	WifiFirmware string         `json:"wifi_firmware,omitempty"`
	PowerLevel   *uint16        `json:"power_level,omitempty"`
	ColorMode    string         `json:"color_mode"`
	Color        *protocol.HSBK `json:"color,omitempty"`
	// ZoneColors holds one entry per zone; entries are null until the
	// device has reported that zone.
	ZoneColors []*protocol.HSBK `json:"zone_colors,omitempty"`
	ZoneCount  *uint16          `json:"zone_count,omitempty"`
}

// view builds a snapshot. Caller holds at least the registry read lock.
func (b *Bulb) view() View {
	v := View{
		ID:        fmt.Sprintf("%016x", b.Target),
		Target:    b.Target,
		LastSeen:  b.LastSeen,
		ColorMode: b.Color.Mode().String(),
	}
	if b.Addr != nil {
		v.Addr = b.Addr.String()
	}
	if n, ok := b.Name.Current(); ok {
		v.Label = &n
	}
	if l, ok := b.Location.Current(); ok {
		v.Location = &l
	}
	if m, ok := b.Model.Current(); ok {
		vendor, product := m.Vendor, m.Product
		v.Vendor, v.Product = &vendor, &product
		if p, ok := products.Lookup(m.Vendor, m.Product); ok {
			v.ProductName = p.Name
		}
	}
	if fw, ok := b.HostFirmware.Current(); ok {
		v.HostFirmware = fw.String()
	}
	if fw, ok := b.WifiFirmware.Current(); ok {
		v.WifiFirmware = fw.String()
	}
	if p, ok := b.PowerLevel.Current(); ok {
		power := p
		v.PowerLevel = &power
	}
	switch b.Color.Mode() {
	case ColorSingle:
		if c, ok := b.Color.single.Current(); ok {
			colour := c
			v.Color = &colour
		}
	case ColorMulti:
		if zs, ok := b.Color.multi.Current(); ok {
			v.ZoneColors = copyZones(zs)
		}
	}
	if z, ok := b.Zones.Current(); ok {
		count := z.Count
		v.ZoneCount = &count
	}
	return v
}
