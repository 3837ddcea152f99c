// Package manager owns the UDP socket and orchestrates the device
// registry: a background receive loop folds every datagram into the
// registry, while foreground calls drive discovery, staleness refresh
// and light commands over the same socket.
//
// # Architecture
//
//	               ┌──────────────────────────────┐
//	broadcast ───▶ │           Manager            │
//	               │                              │
//	datagrams ───▶ │  receive loop ─▶ Registry    │ ──▶ events
//	               │                   ▲          │
//	 commands ───▶ │  Discover/Refresh/│Set*      │
//	               └───────────────────┼──────────┘
//	                                   │ snapshots
//	                             API / telemetry
//
// The receive loop is the only writer into the registry. Discover,
// Refresh and the command methods read snapshots out of the registry,
// release the lock, then send; nothing holds the registry lock across
// a socket operation.
//
// All sends are fire-and-forget. Devices acknowledge commands
// asynchronously and the receive loop advances the per-device sequence
// counter when the acknowledgement arrives.
//
// # Failure Model
//
// A receive failure on the socket is unrecoverable: the loop stops,
// the error is retained for Err(), and the fatal handler (if set) is
// invoked so the process can shut down. Decode failures and malformed
// device reports are logged, counted and dropped without affecting the
// loop or existing registry state. Send failures surface to the caller
// of the operation that attempted them.
package manager
