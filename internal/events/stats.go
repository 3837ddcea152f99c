package events

import "sync/atomic"

type bridgeStats struct {
	eventsPublished    atomic.Uint64
	publishErrors      atomic.Uint64
	commandsReceived   atomic.Uint64
	commandsDispatched atomic.Uint64
	commandErrors      atomic.Uint64
}

// Stats is a point-in-time snapshot of bridge counters.
type Stats struct {
	EventsPublished    uint64 `json:"events_published"`
	PublishErrors      uint64 `json:"publish_errors"`
	CommandsReceived   uint64 `json:"commands_received"`
	CommandsDispatched uint64 `json:"commands_dispatched"`
	CommandErrors      uint64 `json:"command_errors"`
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		EventsPublished:    b.stats.eventsPublished.Load(),
		PublishErrors:      b.stats.publishErrors.Load(),
		CommandsReceived:   b.stats.commandsReceived.Load(),
		CommandsDispatched: b.stats.commandsDispatched.Load(),
		CommandErrors:      b.stats.commandErrors.Load(),
	}
}
