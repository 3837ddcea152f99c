package bulb

import (
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/products"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

const (
	testSource = 0x6c756d6e

	// Product identifiers resolved through the capability table.
	productColorBulb     uint32 = 27 // single zone
	productLegacyStrip   uint32 = 31 // multizone
	productExtendedStrip uint32 = 32 // extended multizone
)

func testAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: protocol.Port}
}

func envelope(target uint64, msg protocol.Message) protocol.Envelope {
	return protocol.Envelope{Target: target, Source: testSource, Message: msg}
}

func TestRefreshableLifecycle(t *testing.T) {
	d := newRefreshable[string](time.Hour, &protocol.GetLabel{})

	if !d.NeedsRefresh() {
		t.Fatal("expected fresh field to need refresh before first update")
	}
	if _, ok := d.Current(); ok {
		t.Fatal("expected no value before first update")
	}

	d.Update("kitchen")
	if d.NeedsRefresh() {
		t.Fatal("expected field to be fresh immediately after update")
	}
	if v, ok := d.Current(); !ok || v != "kitchen" {
		t.Fatalf("Current() = %q, %v; want kitchen, true", v, ok)
	}

	// Backdate past the window.
	d.lastUpdated = time.Now().Add(-2 * time.Hour)
	if !d.NeedsRefresh() {
		t.Fatal("expected field to be stale once max age elapsed")
	}
	if v, ok := d.Current(); !ok || v != "kitchen" {
		t.Fatal("staleness must not discard the cached value")
	}
}

func TestRefreshableUpdateOverwrites(t *testing.T) {
	d := newRefreshable[uint16](time.Hour, &protocol.GetPower{})
	for _, v := range []uint16{1, 42, 0, protocol.PowerOn} {
		d.Update(v)
		got, ok := d.Current()
		if !ok || got != v {
			t.Fatalf("Current() = %d, %v; want %d, true", got, ok, v)
		}
	}
}

func TestApplyCreatesRecordOnce(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	first, err := r.Apply(envelope(0xAA, &protocol.StateService{Service: protocol.ServiceUDP, Port: uint32(addr.Port)}), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !first.Created {
		t.Fatal("expected first datagram to create the record")
	}

	second, err := r.Apply(envelope(0xAA, &protocol.StatePower{Level: protocol.PowerOn}), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if second.Created {
		t.Fatal("expected second datagram to reuse the record")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestDiscoveryReplyCreatesBareRecord(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	applied, err := r.Apply(envelope(0xAA, &protocol.StateService{Service: protocol.ServiceUDP, Port: uint32(addr.Port)}), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v := applied.Device
	if v.Addr != addr.String() {
		t.Errorf("Addr = %q, want %q", v.Addr, addr.String())
	}
	if v.LastSeen.IsZero() {
		t.Error("expected LastSeen to be set")
	}
	if v.Label != nil || v.Location != nil || v.Vendor != nil || v.PowerLevel != nil {
		t.Error("expected no state fields populated by a discovery reply")
	}
	if v.ColorMode != "unknown" {
		t.Errorf("ColorMode = %q, want unknown", v.ColorMode)
	}
}

func TestColorTransition(t *testing.T) {
	tests := []struct {
		name    string
		product uint32
		want    ColorMode
	}{
		{"single zone bulb", productColorBulb, ColorSingle},
		{"legacy strip", productLegacyStrip, ColorMulti},
		{"extended strip", productExtendedStrip, ColorMulti},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(testSource)
			applied, err := r.Apply(envelope(1, &protocol.StateVersion{Vendor: 1, Product: tt.product}), testAddr())
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if applied.Device.ColorMode != tt.want.String() {
				t.Errorf("ColorMode = %q, want %q", applied.Device.ColorMode, tt.want)
			}
		})
	}
}

func TestColorTransitionIsIrreversible(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	if _, err := r.Apply(envelope(1, &protocol.StateVersion{Vendor: 1, Product: productLegacyStrip}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A later version reply naming a single-zone product refreshes the
	// model field but never flips the colour mode back.
	applied, err := r.Apply(envelope(1, &protocol.StateVersion{Vendor: 1, Product: productColorBulb}), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Device.ColorMode != "multi" {
		t.Errorf("ColorMode = %q, want multi after established transition", applied.Device.ColorMode)
	}
	if applied.Device.Product == nil || *applied.Device.Product != productColorBulb {
		t.Error("expected model field itself to take the newer value")
	}
}

func TestMetadataDispatch(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	msgs := []protocol.Message{
		&protocol.StateLabel{Label: "Bench Strip"},
		&protocol.StateLocation{Label: "Workshop"},
		&protocol.StateHostFirmware{VersionMajor: 3, VersionMinor: 70},
		&protocol.StateWifiFirmware{VersionMajor: 1, VersionMinor: 22},
		&protocol.StatePower{Level: protocol.PowerOn},
	}
	var v View
	for _, msg := range msgs {
		applied, err := r.Apply(envelope(2, msg), addr)
		if err != nil {
			t.Fatalf("Apply(%T): %v", msg, err)
		}
		v = applied.Device
	}

	if v.Label == nil || *v.Label != "Bench Strip" {
		t.Error("label not applied")
	}
	if v.Location == nil || *v.Location != "Workshop" {
		t.Error("location not applied")
	}
	if v.HostFirmware != "3.70" {
		t.Errorf("HostFirmware = %q, want 3.70", v.HostFirmware)
	}
	if v.WifiFirmware != "1.22" {
		t.Errorf("WifiFirmware = %q, want 1.22", v.WifiFirmware)
	}
	if v.PowerLevel == nil || *v.PowerLevel != protocol.PowerOn {
		t.Error("power level not applied")
	}
}

func TestLightStateAppliesOnlyInSingleMode(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()
	light := &protocol.LightState{
		Color: protocol.HSBK{Hue: 1000, Saturation: 65535, Brightness: 30000, Kelvin: 3500},
		Power: protocol.PowerOn,
		Label: "Desk",
	}

	// Before the capability is known the reply is ignored.
	applied, err := r.Apply(envelope(3, light), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Device.Color != nil || applied.Device.Label != nil {
		t.Fatal("light state must not apply while capability is unknown")
	}

	if _, err := r.Apply(envelope(3, &protocol.StateVersion{Vendor: 1, Product: productColorBulb}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	applied, err = r.Apply(envelope(3, light), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v := applied.Device
	if v.Color == nil || *v.Color != light.Color {
		t.Error("colour not applied in single mode")
	}
	if v.PowerLevel == nil || *v.PowerLevel != protocol.PowerOn {
		t.Error("power not applied from light state")
	}
	if v.Label == nil || *v.Label != "Desk" {
		t.Error("label not applied from light state")
	}
}

func TestZoneWindowDispatch(t *testing.T) {
	const target = 4
	red := protocol.HSBK{Saturation: 65535, Brightness: 65535, Kelvin: 3500}

	setup := func(t *testing.T) *Registry {
		t.Helper()
		r := NewRegistry(testSource)
		if _, err := r.Apply(envelope(target, &protocol.StateVersion{Vendor: 1, Product: productLegacyStrip}), testAddr()); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		return r
	}

	t.Run("single zone report", func(t *testing.T) {
		r := setup(t)
		applied, err := r.Apply(envelope(target, &protocol.StateZone{Count: 16, Index: 3, Color: red}), testAddr())
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		zs := applied.Device.ZoneColors
		if len(zs) != 16 {
			t.Fatalf("zone array length = %d, want 16 (lazily sized from count)", len(zs))
		}
		if zs[3] == nil || *zs[3] != red {
			t.Error("zone 3 not updated")
		}
		for i, z := range zs {
			if i != 3 && z != nil {
				t.Errorf("zone %d = %v, want unset until the device reports it", i, *z)
			}
		}
	})

	t.Run("batched report", func(t *testing.T) {
		r := setup(t)
		batch := &protocol.StateMultiZone{Count: 16, Index: 8}
		for i := range batch.Colors {
			batch.Colors[i] = red
		}
		applied, err := r.Apply(envelope(target, batch), testAddr())
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		zs := applied.Device.ZoneColors
		if zs[8] == nil || *zs[8] != red || zs[15] == nil || *zs[15] != red {
			t.Error("batch window not applied")
		}
		if zs[7] != nil {
			t.Error("zones outside the window must stay unset, not read as black")
		}
	})

	t.Run("index past count rejected", func(t *testing.T) {
		r := setup(t)
		if _, err := r.Apply(envelope(target, &protocol.StateZone{Count: 16, Index: 3, Color: red}), testAddr()); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		batch := &protocol.StateMultiZone{Count: 16, Index: 10}
		applied, err := r.Apply(envelope(target, batch), testAddr())
		if !errors.Is(err, ErrZoneIndexOutOfRange) {
			t.Fatalf("Apply error = %v, want ErrZoneIndexOutOfRange", err)
		}
		// Prior data intact.
		if zs := applied.Device.ZoneColors; zs[3] == nil || *zs[3] != red {
			t.Error("rejected report must leave prior zone data intact")
		}
	})

	t.Run("ignored before transition", func(t *testing.T) {
		r := NewRegistry(testSource)
		applied, err := r.Apply(envelope(target, &protocol.StateZone{Count: 16, Index: 3, Color: red}), testAddr())
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if applied.Device.ZoneColors != nil {
			t.Error("zone report must be ignored while capability is unknown")
		}
	})
}

func TestExtendedZoneSnapshotOverwrite(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()
	blue := protocol.HSBK{Hue: 43690, Saturation: 65535, Brightness: 65535, Kelvin: 3500}

	first := &protocol.StateExtendedColorZones{ZonesCount: 24, ZoneIndex: 0, ColorsCount: 24}
	if _, err := r.Apply(envelope(5, first), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	second := &protocol.StateExtendedColorZones{ZonesCount: 24, ZoneIndex: 0, ColorsCount: 8}
	for i := 0; i < 8; i++ {
		second.Colors[i] = blue
	}
	applied, err := r.Apply(envelope(5, second), addr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v := applied.Device
	if v.ZoneCount == nil || *v.ZoneCount != 24 {
		t.Fatal("zone count not reported")
	}

	// The snapshot is replaced wholesale, not merged.
	r.mu.RLock()
	z, ok := r.bulbs[5].Zones.Current()
	r.mu.RUnlock()
	if !ok || z.ColorsCount != 8 || z.Colors[0] != blue {
		t.Error("extended snapshot must be overwritten wholesale")
	}
}

func TestAckAdvancesSequence(t *testing.T) {
	tests := []struct {
		ack  uint8
		want uint8
	}{
		{0, 1},
		{1, 2},
		{254, 255},
		{255, 1},
	}
	for _, tt := range tests {
		r := NewRegistry(testSource)
		if _, err := r.Apply(envelope(6, &protocol.Acknowledgement{Sequence: tt.ack}), testAddr()); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		q, err := r.CommandTarget(6)
		if err != nil {
			t.Fatalf("CommandTarget: %v", err)
		}
		if q.Options.Sequence != tt.want {
			t.Errorf("ack %d: sequence = %d, want %d", tt.ack, q.Options.Sequence, tt.want)
		}
	}
}

func TestStaleQueries(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	if _, err := r.Apply(envelope(7, &protocol.StateVersion{Vendor: 1, Product: productColorBulb}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	queries := r.StaleQueries()
	kinds := make([]protocol.Message, 0, len(queries))
	for _, q := range queries {
		if q.Target != 7 || q.Addr.String() != addr.String() {
			t.Fatalf("query misaddressed: %+v", q)
		}
		kinds = append(kinds, q.Message)
	}

	// Fixed priority order; the model is fresh so GetVersion is absent,
	// and a single-zone bulb never gets zone queries.
	want := []protocol.Message{
		&protocol.GetLabel{},
		&protocol.GetLocation{},
		&protocol.GetHostFirmware{},
		&protocol.GetWifiFirmware{},
		&protocol.GetPower{},
		&protocol.LightGet{},
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d queries, want %d: %#v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if reflect.TypeOf(kinds[i]) != reflect.TypeOf(want[i]) {
			t.Errorf("query[%d] = %T, want %T", i, kinds[i], want[i])
		}
	}
}

func TestStaleQueriesAfterWindowElapses(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	if _, err := r.Apply(envelope(8, &protocol.StatePower{Level: protocol.PowerOn}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Freshen everything, then push the power level 20s into the past:
	// past its 15s window while the metadata stays inside the hour.
	r.mu.Lock()
	b := r.bulbs[8]
	b.Name.Update("n")
	b.Model.Update(Model{Vendor: 1, Product: productColorBulb})
	b.Location.Update("l")
	b.HostFirmware.Update(FirmwareVersion{})
	b.WifiFirmware.Update(FirmwareVersion{})
	b.Color.resolve(mustFeatures(t, 1, productColorBulb))
	b.Color.single.Update(protocol.HSBK{})
	b.PowerLevel.lastUpdated = time.Now().Add(-20 * time.Second)
	r.mu.Unlock()

	queries := r.StaleQueries()
	if len(queries) != 1 {
		t.Fatalf("got %d queries, want only the power query: %#v", len(queries), queries)
	}
	if _, ok := queries[0].Message.(*protocol.GetPower); !ok {
		t.Fatalf("query = %T, want *protocol.GetPower", queries[0].Message)
	}
}

func TestExtendedZoneQueryRequiresCapability(t *testing.T) {
	r := NewRegistry(testSource)
	addr := testAddr()

	if _, err := r.Apply(envelope(9, &protocol.StateVersion{Vendor: 1, Product: productExtendedStrip}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	var extended bool
	for _, q := range r.StaleQueries() {
		if _, ok := q.Message.(*protocol.GetExtendedColorZones); ok {
			extended = true
		}
	}
	if !extended {
		t.Error("extended strip should be asked for its zone snapshot")
	}

	r2 := NewRegistry(testSource)
	if _, err := r2.Apply(envelope(9, &protocol.StateVersion{Vendor: 1, Product: productLegacyStrip}), addr); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, q := range r2.StaleQueries() {
		if _, ok := q.Message.(*protocol.GetExtendedColorZones); ok {
			t.Error("legacy strip must not receive extended zone queries")
		}
	}
}

func TestColorAccessors(t *testing.T) {
	var s ColorState
	if _, err := s.Single(); !errors.Is(err, ErrCapabilityUnknown) {
		t.Errorf("Single() error = %v, want ErrCapabilityUnknown", err)
	}

	s.resolve(mustFeatures(t, 1, productLegacyStrip))
	if _, err := s.Single(); !errors.Is(err, ErrWrongColorMode) {
		t.Errorf("Single() on multi error = %v, want ErrWrongColorMode", err)
	}
	if _, err := s.Multi(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Multi() before data error = %v, want ErrNotAvailable", err)
	}

	red := protocol.HSBK{Saturation: 65535, Brightness: 65535, Kelvin: 3500}
	s.multi.Update([]*protocol.HSBK{nil, &red, nil, nil})
	zs, err := s.Multi()
	if err != nil || len(zs) != 4 {
		t.Fatalf("Multi() = %v, %v; want 4 zones", zs, err)
	}
	if zs[0] != nil || zs[1] == nil || *zs[1] != red {
		t.Error("Multi() must preserve which zones have been reported")
	}
	*zs[1] = protocol.HSBK{}
	again, _ := s.Multi()
	if *again[1] != red {
		t.Error("Multi() must return a copy, not the live zone array")
	}
}

func TestCommandTargetUnknownDevice(t *testing.T) {
	r := NewRegistry(testSource)
	if _, err := r.CommandTarget(0xDEAD); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("CommandTarget error = %v, want ErrUnknownDevice", err)
	}
	if _, _, err := r.PowerLevel(0xDEAD); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("PowerLevel error = %v, want ErrUnknownDevice", err)
	}
}

func mustFeatures(t *testing.T, vendor, product uint32) products.Features {
	t.Helper()
	p, ok := products.Lookup(vendor, product)
	if !ok {
		t.Fatalf("product %d/%d missing from capability table", vendor, product)
	}
	return p.Features
}
