package bulb

import (
	"net"
	"sync"

	"github.com/nerrad567/lumen-core/internal/protocol"
)

// Logger is the minimal logging surface the registry needs. The
// infrastructure logging package satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Query is one refresh message ready to be encoded and sent after the
// registry lock has been released.
type Query struct {
	Target  uint64
	Addr    *net.UDPAddr
	Options protocol.Options
	Message protocol.Message
}

// Applied describes the outcome of folding one datagram into the
// registry, for the caller's stats and event publishing.
type Applied struct {
	// Created is true when the datagram introduced a new device.
	Created bool
	// Device is a snapshot of the record after the update.
	Device View
}

// Registry is the concurrent device table. One record per 64-bit
// identity; records are created on first contact and never evicted.
type Registry struct {
	mu     sync.RWMutex
	bulbs  map[uint64]*Bulb
	source uint32
	logger Logger
}

// NewRegistry returns an empty registry. Frames sent on behalf of its
// records carry the given source identifier so replies can be matched
// to this client.
func NewRegistry(source uint32) *Registry {
	return &Registry{
		bulbs:  make(map[uint64]*Bulb),
		source: source,
	}
}

// SetLogger attaches a logger for dispatch diagnostics. Safe to leave
// unset.
func (r *Registry) SetLogger(l Logger) {
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

func (r *Registry) log() Logger {
	if r.logger != nil {
		return r.logger
	}
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Apply folds one decoded datagram into the registry: the record is
// created if this identity is new, its address and last-seen time are
// refreshed, and the message is dispatched onto its fields. Inconsistent
// reports are logged and dropped without touching existing data; the
// error is returned for the caller's stats only.
func (r *Registry) Apply(env protocol.Envelope, addr *net.UDPAddr) (Applied, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bulbs[env.Target]
	if !ok {
		b = newBulb(r.source, env.Target, addr)
		r.bulbs[env.Target] = b
		r.log().Info("device discovered", "target", b.Target, "addr", addr.String())
	}
	b.touch(addr)

	err := b.apply(env, addr, r.log())
	return Applied{Created: !ok, Device: b.view()}, err
}

// StaleQueries walks every record under the read lock and collects the
// refresh messages for all stale fields, paired with the options and
// address needed to send them once the lock is released.
func (r *Registry) StaleQueries() []Query {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Query
	for _, b := range r.bulbs {
		if b.Addr == nil {
			continue
		}
		for _, msg := range b.pendingQueries() {
			out = append(out, Query{
				Target:  b.Target,
				Addr:    b.Addr,
				Options: b.Options,
				Message: msg,
			})
		}
	}
	return out
}

// CommandTarget snapshots the send parameters for one device so a
// command can be encoded and sent outside the lock.
func (r *Registry) CommandTarget(target uint64) (Query, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bulbs[target]
	if !ok || b.Addr == nil {
		return Query{}, ErrUnknownDevice
	}
	return Query{Target: target, Addr: b.Addr, Options: b.Options}, nil
}

// PowerLevel returns the last reported power level for a device, used
// by toggle to pick the opposite state.
func (r *Registry) PowerLevel(target uint64) (uint16, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bulbs[target]
	if !ok {
		return 0, false, ErrUnknownDevice
	}
	p, valid := b.PowerLevel.Current()
	return p, valid, nil
}

// View returns a snapshot of one device.
func (r *Registry) View(target uint64) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bulbs[target]
	if !ok {
		return View{}, ErrUnknownDevice
	}
	return b.view(), nil
}

// Views returns snapshots of every known device.
func (r *Registry) Views() []View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]View, 0, len(r.bulbs))
	for _, b := range r.bulbs {
		out = append(out, b.view())
	}
	return out
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bulbs)
}
