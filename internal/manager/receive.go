package manager

import (
	"errors"
	"net"
	"time"

	"github.com/nerrad567/lumen-core/internal/protocol"
)

// receiveBufferSize comfortably holds the largest protocol message (an
// extended zone state is 697 bytes on the wire).
const receiveBufferSize = 1024

// receiveLoop is the sole reader of the socket and the sole writer into
// the registry. It runs until the socket is closed or a receive error
// occurs; receive errors are unrecoverable and surface through Err()
// and the fatal handler.
func (m *Manager) receiveLoop() {
	defer m.recvWG.Done()

	buf := make([]byte, receiveBufferSize)
	for {
		n, addr, err := m.conn.ReadFrom(buf)
		if err != nil {
			if m.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			m.setFatal(err)
			return
		}
		m.stats.datagramsReceived.Add(1)

		if n == 0 {
			m.logDebug("zero length datagram", "addr", addr.String())
			m.stats.datagramsDropped.Add(1)
			continue
		}
		udp, ok := addr.(*net.UDPAddr)
		if !ok {
			m.stats.datagramsDropped.Add(1)
			continue
		}

		env, err := protocol.Decode(buf[:n])
		if err != nil {
			m.logWarn("dropping undecodable datagram", "addr", addr.String(), "error", err)
			m.stats.decodeErrors.Add(1)
			continue
		}

		// Broadcast frames (our own discovery included) name no device.
		if env.Target == 0 {
			m.stats.datagramsDropped.Add(1)
			continue
		}

		applied, err := m.registry.Apply(env, udp)
		if err != nil {
			// Already logged with context by the registry.
			m.stats.inconsistencies.Add(1)
			continue
		}
		m.stats.messagesApplied.Add(1)

		evType := EventUpdated
		if applied.Created {
			evType = EventDiscovered
		}
		m.emit(Event{Type: evType, Device: applied.Device, Time: time.Now().UTC()})
	}
}
