package manager

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/bulb"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

const testSource = 0x6c756d6e

type packet struct {
	data []byte
	addr net.Addr
}

// fakeConn is an in-memory net.PacketConn: tests inject datagrams into
// in and inspect everything written through Sent.
type fakeConn struct {
	in chan packet

	mu   sync.Mutex
	sent []packet

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan packet, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case pkt := <-c.in:
		return copy(p, pkt.data), pkt.addr, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, packet{data: append([]byte(nil), p...), addr: addr})
	return len(p), nil
}

func (c *fakeConn) Sent() []packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]packet, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr              { return &net.UDPAddr{Port: protocol.Port} }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// failingConn fails every read with a non-recoverable error.
type failingConn struct {
	err error
}

func (c *failingConn) ReadFrom([]byte) (int, net.Addr, error)    { return 0, nil, c.err }
func (c *failingConn) WriteTo(p []byte, _ net.Addr) (int, error) { return len(p), nil }
func (c *failingConn) Close() error                              { return nil }
func (c *failingConn) LocalAddr() net.Addr                       { return &net.UDPAddr{} }
func (c *failingConn) SetDeadline(time.Time) error               { return nil }
func (c *failingConn) SetReadDeadline(time.Time) error           { return nil }
func (c *failingConn) SetWriteDeadline(time.Time) error          { return nil }

func deviceAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: protocol.Port}
}

// newTestManager starts a manager on a fake conn, forwarding events to
// the returned channel.
func newTestManager(t *testing.T, conn net.PacketConn) (*Manager, chan Event) {
	t.Helper()
	events := make(chan Event, 32)
	m, err := New(Options{
		Source: testSource,
		Conn:   conn,
		Broadcasts: func() ([]*net.UDPAddr, error) {
			return []*net.UDPAddr{
				{IP: net.IPv4(192, 168, 1, 255), Port: protocol.Port},
				{IP: net.IPv4(10, 0, 0, 255), Port: protocol.Port},
			}, nil
		},
		OnEvent: func(ev Event) { events <- ev },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, events
}

func waitEvent(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// inject encodes a device reply and feeds it to the receive loop.
func inject(conn *fakeConn, target uint64, msg protocol.Message) {
	data := protocol.Encode(protocol.Options{Target: target, Source: testSource}, msg)
	conn.in <- packet{data: data, addr: deviceAddr()}
}

func TestDiscoverBroadcastsServiceQuery(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, conn)

	if !m.LastDiscovery().IsZero() {
		t.Fatal("expected zero last-discovery before first sweep")
	}
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	sent := conn.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d packets, want one per broadcast address", len(sent))
	}
	env, err := protocol.Decode(sent[0].data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := env.Message.(*protocol.GetService); !ok {
		t.Errorf("broadcast message = %T, want *protocol.GetService", env.Message)
	}
	if env.Target != 0 {
		t.Errorf("broadcast target = %d, want 0", env.Target)
	}
	if m.LastDiscovery().IsZero() {
		t.Error("expected last-discovery to be recorded")
	}
}

func TestSetOnEventAfterStart(t *testing.T) {
	conn := newFakeConn()
	m, err := New(Options{
		Source:     testSource,
		Conn:       conn,
		Broadcasts: func() ([]*net.UDPAddr, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	events := make(chan Event, 32)
	m.SetOnEvent(func(ev Event) { events <- ev })

	inject(conn, 0xCC, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	if ev := waitEvent(t, events); ev.Type != EventDiscovered {
		t.Errorf("event type = %q, want discovered", ev.Type)
	}
}

func TestReceiveLoopCreatesDevices(t *testing.T) {
	conn := newFakeConn()
	m, events := newTestManager(t, conn)

	inject(conn, 0xAA, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	ev := waitEvent(t, events)
	if ev.Type != EventDiscovered {
		t.Errorf("event type = %q, want discovered", ev.Type)
	}

	inject(conn, 0xAA, &protocol.StatePower{Level: protocol.PowerOn})
	ev = waitEvent(t, events)
	if ev.Type != EventUpdated {
		t.Errorf("event type = %q, want updated", ev.Type)
	}

	if m.DeviceCount() != 1 {
		t.Fatalf("DeviceCount = %d, want 1", m.DeviceCount())
	}
	v, err := m.Device(0xAA)
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if v.PowerLevel == nil || *v.PowerLevel != protocol.PowerOn {
		t.Error("power level not folded into the record")
	}
}

func TestReceiveLoopDropsJunk(t *testing.T) {
	conn := newFakeConn()
	m, events := newTestManager(t, conn)

	// Zero-length, truncated, and broadcast-target datagrams are all
	// dropped without disturbing the loop.
	conn.in <- packet{data: nil, addr: deviceAddr()}
	conn.in <- packet{data: []byte{0x01, 0x02, 0x03}, addr: deviceAddr()}
	conn.in <- packet{data: protocol.Encode(protocol.Options{Source: testSource}, &protocol.GetService{}), addr: deviceAddr()}

	inject(conn, 0xBB, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	waitEvent(t, events)

	if m.DeviceCount() != 1 {
		t.Fatalf("DeviceCount = %d, want 1", m.DeviceCount())
	}
	s := m.Stats()
	if s.DatagramsDropped < 2 {
		t.Errorf("DatagramsDropped = %d, want at least 2", s.DatagramsDropped)
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.DecodeErrors)
	}
}

func TestTogglePower(t *testing.T) {
	conn := newFakeConn()
	m, events := newTestManager(t, conn)

	inject(conn, 0xCC, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	waitEvent(t, events)

	// Unknown power level defaults to switching on.
	if err := m.TogglePower(0xCC); err != nil {
		t.Fatalf("TogglePower: %v", err)
	}
	env := lastSent(t, conn)
	sp, ok := env.Message.(*protocol.SetPower)
	if !ok {
		t.Fatalf("message = %T, want *protocol.SetPower", env.Message)
	}
	if sp.Level != protocol.PowerOn {
		t.Errorf("Level = %d, want on when power is unknown", sp.Level)
	}

	inject(conn, 0xCC, &protocol.StatePower{Level: protocol.PowerOn})
	waitEvent(t, events)
	if err := m.TogglePower(0xCC); err != nil {
		t.Fatalf("TogglePower: %v", err)
	}
	env = lastSent(t, conn)
	if sp := env.Message.(*protocol.SetPower); sp.Level != protocol.PowerStandby {
		t.Errorf("Level = %d, want standby when last seen on", sp.Level)
	}
}

func TestCommands(t *testing.T) {
	conn := newFakeConn()
	m, events := newTestManager(t, conn)

	inject(conn, 0xDD, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	waitEvent(t, events)

	colour := protocol.HSBK{Hue: 100, Saturation: 200, Brightness: 300, Kelvin: 3500}

	t.Run("set power", func(t *testing.T) {
		if err := m.SetPower(0xDD, protocol.PowerOn, 1500*time.Millisecond); err != nil {
			t.Fatalf("SetPower: %v", err)
		}
		env := lastSent(t, conn)
		lp, ok := env.Message.(*protocol.LightSetPower)
		if !ok {
			t.Fatalf("message = %T, want *protocol.LightSetPower", env.Message)
		}
		if lp.Level != protocol.PowerOn || lp.Duration != 1500 {
			t.Errorf("got level=%d duration=%d, want %d/1500", lp.Level, lp.Duration, protocol.PowerOn)
		}
	})

	t.Run("set colour", func(t *testing.T) {
		if err := m.SetColor(0xDD, colour, 2*time.Second); err != nil {
			t.Fatalf("SetColor: %v", err)
		}
		env := lastSent(t, conn)
		sc, ok := env.Message.(*protocol.LightSetColor)
		if !ok {
			t.Fatalf("message = %T, want *protocol.LightSetColor", env.Message)
		}
		if sc.Color != colour || sc.Duration != 2000 {
			t.Errorf("got colour=%v duration=%d", sc.Color, sc.Duration)
		}
	})

	t.Run("set zones", func(t *testing.T) {
		zones := make([]protocol.HSBK, 12)
		for i := range zones {
			zones[i] = colour
		}
		if err := m.SetZones(0xDD, zones, 0); err != nil {
			t.Fatalf("SetZones: %v", err)
		}
		env := lastSent(t, conn)
		sz, ok := env.Message.(*protocol.SetExtendedColorZones)
		if !ok {
			t.Fatalf("message = %T, want *protocol.SetExtendedColorZones", env.Message)
		}
		if sz.ColorsCount != 12 || sz.Apply != protocol.ApplyImmediately || sz.Colors[11] != colour {
			t.Errorf("zone command not encoded as expected: %+v", sz)
		}
	})

	t.Run("too many zones", func(t *testing.T) {
		if err := m.SetZones(0xDD, make([]protocol.HSBK, protocol.MaxZones+1), 0); !errors.Is(err, ErrTooManyZones) {
			t.Errorf("error = %v, want ErrTooManyZones", err)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		if err := m.SetPower(0xEE, protocol.PowerOn, 0); !errors.Is(err, bulb.ErrUnknownDevice) {
			t.Errorf("error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestRefreshSendsStaleQueries(t *testing.T) {
	conn := newFakeConn()
	m, events := newTestManager(t, conn)

	inject(conn, 0xEE, &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.Port})
	waitEvent(t, events)

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	sent := conn.Sent()
	if len(sent) == 0 {
		t.Fatal("expected refresh queries for a brand new record")
	}
	var sawPower bool
	for _, pkt := range sent {
		env, err := protocol.Decode(pkt.data)
		if err != nil {
			t.Fatalf("Decode sent packet: %v", err)
		}
		if env.Target != 0xEE {
			t.Errorf("query target = %016x, want 00000000000000ee", env.Target)
		}
		if pkt.addr.String() != deviceAddr().String() {
			t.Errorf("query sent to %s, want device address", pkt.addr)
		}
		if _, ok := env.Message.(*protocol.GetPower); ok {
			sawPower = true
		}
	}
	if !sawPower {
		t.Error("expected a power query among the refresh sends")
	}
}

func TestAddBulbQueriesAddressDirectly(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, conn)

	target := &net.UDPAddr{IP: net.IPv4(192, 168, 7, 9), Port: protocol.Port}
	if err := m.AddBulb(target); err != nil {
		t.Fatalf("AddBulb: %v", err)
	}

	sent := conn.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(sent))
	}
	if sent[0].addr.String() != target.String() {
		t.Errorf("sent to %s, want %s", sent[0].addr, target)
	}
	env, err := protocol.Decode(sent[0].data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := env.Message.(*protocol.GetService); !ok {
		t.Errorf("message = %T, want *protocol.GetService", env.Message)
	}
}

func TestFatalReceiveError(t *testing.T) {
	boom := errors.New("nic on fire")
	conn := &failingConn{err: boom}

	fatal := make(chan error, 1)
	m, err := New(Options{
		Source:  testSource,
		Conn:    conn,
		OnFatal: func(err error) { fatal <- err },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	select {
	case err := <-fatal:
		if !errors.Is(err, boom) {
			t.Errorf("fatal error = %v, want wrapped %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fatal handler never invoked")
	}
	if !errors.Is(m.Err(), boom) {
		t.Errorf("Err() = %v, want %v", m.Err(), boom)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, conn)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := m.Discover(); !errors.Is(err, ErrClosed) {
		t.Errorf("Discover after close = %v, want ErrClosed", err)
	}
	if err := m.Refresh(); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh after close = %v, want ErrClosed", err)
	}
}

// lastSent decodes the most recently written packet.
func lastSent(t *testing.T, conn *fakeConn) protocol.Envelope {
	t.Helper()
	sent := conn.Sent()
	if len(sent) == 0 {
		t.Fatal("no packets sent")
	}
	env, err := protocol.Decode(sent[len(sent)-1].data)
	if err != nil {
		t.Fatalf("Decode sent packet: %v", err)
	}
	return env
}
