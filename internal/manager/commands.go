package manager

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/lumen-core/internal/protocol"
)

// Discover broadcasts a service query on every usable interface and
// records the sweep time. Fire-and-forget: replies arrive on the
// receive loop and create registry records there.
func (m *Manager) Discover() error {
	if m.closed.Load() {
		return ErrClosed
	}

	addrs, err := m.broadcasts()
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return ErrNoBroadcastAddrs
	}

	data := protocol.Encode(protocol.Options{Source: m.source}, &protocol.GetService{})

	var errs []error
	for _, addr := range addrs {
		m.stats.sendsAttempted.Add(1)
		if _, err := m.conn.WriteTo(data, addr); err != nil {
			m.stats.sendErrors.Add(1)
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", addr, err))
			continue
		}
		m.logDebug("discovery broadcast sent", "addr", addr.String())
	}
	m.lastDiscovery.Store(time.Now().UnixNano())
	return errors.Join(errs...)
}

// AddBulb sends a service query straight to a known address, for
// devices on segments broadcast discovery cannot reach. The reply
// creates the registry record like any other discovery reply.
func (m *Manager) AddBulb(addr *net.UDPAddr) error {
	if m.closed.Load() {
		return ErrClosed
	}

	data := protocol.Encode(protocol.Options{Source: m.source}, &protocol.GetService{})
	m.stats.sendsAttempted.Add(1)
	if _, err := m.conn.WriteTo(data, addr); err != nil {
		m.stats.sendErrors.Add(1)
		return fmt.Errorf("query %s: %w", addr, err)
	}
	return nil
}

// Refresh sweeps the registry for stale fields and sends each one's
// query. Send failures are collected per attempt and joined; a failed
// send never affects registry state.
func (m *Manager) Refresh() error {
	if m.closed.Load() {
		return ErrClosed
	}

	queries := m.registry.StaleQueries()

	var errs []error
	for _, q := range queries {
		m.stats.sendsAttempted.Add(1)
		data := protocol.Encode(q.Options, q.Message)
		if _, err := m.conn.WriteTo(data, q.Addr); err != nil {
			m.stats.sendErrors.Add(1)
			errs = append(errs, fmt.Errorf("refresh %016x: %w", q.Target, err))
		}
	}
	if len(queries) > 0 {
		m.logDebug("refresh sweep", "queries", len(queries))
	}
	return errors.Join(errs...)
}

// TogglePower flips a device's power based on its last known level,
// defaulting to on when the level has never been reported.
func (m *Manager) TogglePower(target uint64) error {
	level, known, err := m.registry.PowerLevel(target)
	if err != nil {
		return err
	}
	next := protocol.PowerOn
	if known && level > 0 {
		next = protocol.PowerStandby
	}
	return m.command(target, &protocol.SetPower{Level: next})
}

// SetPower transitions a device's power level over the duration.
func (m *Manager) SetPower(target uint64, level uint16, duration time.Duration) error {
	return m.command(target, &protocol.LightSetPower{
		Level:    level,
		Duration: durationMillis(duration),
	})
}

// SetColor transitions a whole light to one colour over the duration.
func (m *Manager) SetColor(target uint64, colour protocol.HSBK, duration time.Duration) error {
	return m.command(target, &protocol.LightSetColor{
		Color:    colour,
		Duration: durationMillis(duration),
	})
}

// SetZones writes a full zone colour array in one extended message.
func (m *Manager) SetZones(target uint64, colours []protocol.HSBK, duration time.Duration) error {
	if len(colours) > protocol.MaxZones {
		return fmt.Errorf("%w: %d zones", ErrTooManyZones, len(colours))
	}
	msg := &protocol.SetExtendedColorZones{
		Duration:    durationMillis(duration),
		Apply:       protocol.ApplyImmediately,
		Index:       0,
		ColorsCount: uint8(len(colours)),
	}
	copy(msg.Colors[:], colours)
	return m.command(target, msg)
}

// command snapshots the device's send parameters under the registry
// read lock, then encodes and sends outside it. Fire-and-forget: the
// sequence advances later if the device acknowledges.
func (m *Manager) command(target uint64, msg protocol.Message) error {
	if m.closed.Load() {
		return ErrClosed
	}

	q, err := m.registry.CommandTarget(target)
	if err != nil {
		return err
	}

	m.stats.sendsAttempted.Add(1)
	data := protocol.Encode(q.Options, msg)
	if _, err := m.conn.WriteTo(data, q.Addr); err != nil {
		m.stats.sendErrors.Add(1)
		return fmt.Errorf("send to %016x: %w", target, err)
	}
	return nil
}

func durationMillis(d time.Duration) uint32 {
	if d < 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}
