package manager

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lumen-core/internal/bulb"
)

const defaultEventQueueSize = 64

// Logger is the minimal logging surface the manager needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventType classifies registry changes surfaced to the event handler.
type EventType string

const (
	// EventDiscovered fires the first time a device identity is seen.
	EventDiscovered EventType = "discovered"
	// EventUpdated fires when a datagram changed an existing record.
	EventUpdated EventType = "updated"
)

// Event is one registry change, delivered to the OnEvent handler from a
// single worker goroutine.
type Event struct {
	Type   EventType `json:"type"`
	Device bulb.View `json:"device"`
	Time   time.Time `json:"time"`
}

// BroadcastFunc enumerates the broadcast addresses discovery should
// target. Overridable in tests and for unusual network setups.
type BroadcastFunc func() ([]*net.UDPAddr, error)

// Options holds configuration for creating a Manager.
type Options struct {
	// Source tags every outbound frame so replies can be attributed to
	// this client. Required, non-zero.
	Source uint32

	// Bind is the local listen address. Defaults to ":56700" so devices
	// can also reach us unsolicited on the well-known port.
	Bind string

	// Conn overrides the socket. If nil, a UDP socket is opened on Bind.
	Conn net.PacketConn

	// Broadcasts overrides interface enumeration for discovery.
	Broadcasts BroadcastFunc

	// Logger is optional structured logging.
	Logger Logger

	// OnEvent, if set, receives registry change events from a dedicated
	// worker goroutine. Slow handlers cause events to be dropped, never
	// to stall the receive loop.
	OnEvent func(Event)

	// OnFatal, if set, is invoked once if the receive loop dies.
	OnFatal func(error)

	// EventQueueSize bounds the event queue. Defaults to 64.
	EventQueueSize int
}

// Manager owns the socket and the registry. All methods are safe for
// concurrent use.
type Manager struct {
	conn       net.PacketConn
	registry   *bulb.Registry
	source     uint32
	broadcasts BroadcastFunc

	onEvent   func(Event)
	onEventMu sync.RWMutex
	onFatal   func(error)
	events    chan Event

	stats         stats
	lastDiscovery atomic.Int64 // unix nanos, 0 until first Discover

	fatalMu  sync.Mutex
	fatalErr error

	done     chan struct{}
	recvWG   sync.WaitGroup
	eventWG  sync.WaitGroup
	stopOnce sync.Once
	closed   atomic.Bool

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Manager and starts its receive loop.
func New(opts Options) (*Manager, error) {
	if opts.Source == 0 {
		return nil, fmt.Errorf("source tag is required")
	}

	conn := opts.Conn
	if conn == nil {
		bind := opts.Bind
		if bind == "" {
			bind = ":56700"
		}
		var err error
		conn, err = net.ListenPacket("udp4", bind)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", bind, err)
		}
	}

	broadcasts := opts.Broadcasts
	if broadcasts == nil {
		broadcasts = systemBroadcasts
	}

	queueSize := opts.EventQueueSize
	if queueSize <= 0 {
		queueSize = defaultEventQueueSize
	}

	m := &Manager{
		conn:       conn,
		registry:   bulb.NewRegistry(opts.Source),
		source:     opts.Source,
		broadcasts: broadcasts,
		onEvent:    opts.OnEvent,
		onFatal:    opts.OnFatal,
		done:       make(chan struct{}),
		logger:     opts.Logger,
	}
	if opts.Logger != nil {
		m.registry.SetLogger(opts.Logger)
	}

	m.events = make(chan Event, queueSize)
	m.eventWG.Add(1)
	go m.eventLoop()

	m.recvWG.Add(1)
	go m.receiveLoop()

	return m, nil
}

// Close stops the receive loop, closes the socket and waits for the
// worker goroutines to drain.
func (m *Manager) Close() error {
	var err error
	m.stopOnce.Do(func() {
		m.closed.Store(true)
		close(m.done)
		err = m.conn.Close()

		// The receive loop is the only event producer; it must be fully
		// stopped before the event queue can be closed and drained.
		m.recvWG.Wait()
		close(m.events)
		m.eventWG.Wait()
		m.logInfo("manager stopped", "devices", m.registry.Len())
	})
	return err
}

// Err returns the fatal receive error, if the receive loop has died.
func (m *Manager) Err() error {
	m.fatalMu.Lock()
	defer m.fatalMu.Unlock()
	return m.fatalErr
}

func (m *Manager) setFatal(err error) {
	m.fatalMu.Lock()
	m.fatalErr = err
	m.fatalMu.Unlock()

	m.logError("receive loop terminated", err)
	if m.onFatal != nil {
		m.onFatal(err)
	}
}

// Devices returns snapshots of every known device.
func (m *Manager) Devices() []bulb.View {
	return m.registry.Views()
}

// Device returns a snapshot of one device.
func (m *Manager) Device(target uint64) (bulb.View, error) {
	return m.registry.View(target)
}

// DeviceCount returns the number of known devices.
func (m *Manager) DeviceCount() int {
	return m.registry.Len()
}

// LastDiscovery returns the time of the most recent broadcast sweep,
// or the zero time if none has run.
func (m *Manager) LastDiscovery() time.Time {
	ns := m.lastDiscovery.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// eventLoop delivers registry change events to the handler one at a
// time, off the receive path. Events arriving with no handler
// installed are discarded.
func (m *Manager) eventLoop() {
	defer m.eventWG.Done()
	for ev := range m.events {
		m.onEventMu.RLock()
		handler := m.onEvent
		m.onEventMu.RUnlock()
		if handler != nil {
			handler(ev)
		}
	}
}

// SetOnEvent installs or replaces the event handler after
// construction. Safe to call concurrently.
func (m *Manager) SetOnEvent(handler func(Event)) {
	m.onEventMu.Lock()
	m.onEvent = handler
	m.onEventMu.Unlock()
}

// emit queues an event without ever blocking the receive loop.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.stats.eventsDropped.Add(1)
		m.logWarn("event queue full, dropping", "type", ev.Type, "device", ev.Device.ID)
	}
}

// SetLogger attaches a logger after construction.
func (m *Manager) SetLogger(l Logger) {
	m.loggerMu.Lock()
	m.logger = l
	m.loggerMu.Unlock()
	m.registry.SetLogger(l)
}

func (m *Manager) logDebug(msg string, args ...any) {
	m.loggerMu.RLock()
	l := m.logger
	m.loggerMu.RUnlock()
	if l != nil {
		l.Debug(msg, args...)
	}
}

func (m *Manager) logInfo(msg string, args ...any) {
	m.loggerMu.RLock()
	l := m.logger
	m.loggerMu.RUnlock()
	if l != nil {
		l.Info(msg, args...)
	}
}

func (m *Manager) logWarn(msg string, args ...any) {
	m.loggerMu.RLock()
	l := m.logger
	m.loggerMu.RUnlock()
	if l != nil {
		l.Warn(msg, args...)
	}
}

func (m *Manager) logError(msg string, err error) {
	m.loggerMu.RLock()
	l := m.logger
	m.loggerMu.RUnlock()
	if l != nil {
		l.Error(msg, "error", err)
	}
}
