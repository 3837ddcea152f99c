package manager

import (
	"sync/atomic"
	"time"
)

// stats holds the manager's internal counters.
type stats struct {
	datagramsReceived atomic.Uint64
	datagramsDropped  atomic.Uint64
	decodeErrors      atomic.Uint64
	inconsistencies   atomic.Uint64
	messagesApplied   atomic.Uint64
	sendsAttempted    atomic.Uint64
	sendErrors        atomic.Uint64
	eventsDropped     atomic.Uint64
}

// Stats is a point-in-time snapshot of manager counters, shaped for the
// API metrics endpoint.
type Stats struct {
	DatagramsReceived uint64     `json:"datagrams_received"`
	DatagramsDropped  uint64     `json:"datagrams_dropped"`
	DecodeErrors      uint64     `json:"decode_errors"`
	Inconsistencies   uint64     `json:"inconsistencies"`
	MessagesApplied   uint64     `json:"messages_applied"`
	SendsAttempted    uint64     `json:"sends_attempted"`
	SendErrors        uint64     `json:"send_errors"`
	EventsDropped     uint64     `json:"events_dropped"`
	Devices           int        `json:"devices"`
	LastDiscovery     *time.Time `json:"last_discovery,omitempty"`
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		DatagramsReceived: m.stats.datagramsReceived.Load(),
		DatagramsDropped:  m.stats.datagramsDropped.Load(),
		DecodeErrors:      m.stats.decodeErrors.Load(),
		Inconsistencies:   m.stats.inconsistencies.Load(),
		MessagesApplied:   m.stats.messagesApplied.Load(),
		SendsAttempted:    m.stats.sendsAttempted.Load(),
		SendErrors:        m.stats.sendErrors.Load(),
		EventsDropped:     m.stats.eventsDropped.Load(),
		Devices:           m.registry.Len(),
	}
	if t := m.LastDiscovery(); !t.IsZero() {
		utc := t.UTC()
		s.LastDiscovery = &utc
	}
	return s
}
