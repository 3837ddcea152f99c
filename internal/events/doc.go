// Package events connects the device manager to the MQTT bus.
//
// It carries traffic in both directions:
//
//	Manager ──events──▶ Bridge ──publish──▶ lumen/state/lifx/{id}  (retained)
//	                           ──publish──▶ lumen/event/lifx/{type}
//	Broker ──lumen/command/lifx/{id}──▶ Bridge ──dispatch──▶ Manager
//
// State snapshots are published retained so late-joining consumers see
// the last known state of every device without waiting for the next
// change. Lifecycle events (discovered, updated) are fire-and-forget
// with a unique event ID for downstream deduplication.
//
// Inbound commands are JSON documents on the per-device command topic:
//
//	{"action": "toggle"}
//	{"action": "set_power", "level": 65535, "duration_ms": 500}
//	{"action": "set_color", "color": {"hue": 21845, ...}, "duration_ms": 250}
//	{"action": "set_zones", "colors": [...], "duration_ms": 0}
//
// Malformed commands are counted and logged, never fatal.
package events
