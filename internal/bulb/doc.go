// Package bulb holds the concurrent device registry at the centre of
// Lumen Core: one record per discovered LIFX device, kept current by
// folding incoming protocol messages into staleness-tracked fields.
//
// # Data Model
//
//   - RefreshableData is a single value slot that knows its own maximum
//     age and the query message that refreshes it. Metadata that rarely
//     changes (label, model, location, firmware) carries a one hour
//     window; runtime state (power, colour, zones) carries fifteen
//     seconds.
//   - ColorState is a tagged union over Unknown, Single and Multi. Every
//     record starts Unknown; a StateVersion reply resolves the hardware
//     through the products registry and transitions the state exactly
//     once. The variant never changes again, only its contained value.
//   - Bulb is one device's full known state: identity, network address,
//     protocol send options with the rolling sequence counter, the
//     refreshable metadata fields and the colour state.
//   - Registry maps 64-bit device identities to records behind a single
//     RWMutex.
//
// # Concurrency
//
// Records are created and mutated only inside Registry.Apply, which the
// manager's receive loop calls while holding the registry write lock.
// Everything else reads through snapshot methods (Views, StaleQueries,
// CommandTarget) that copy what they need under the read lock and
// release it before any network activity. The lock is never held across
// a decode, send or receive.
//
// Field updates are unconditional overwrites, so replaying a duplicate
// or out-of-order datagram is harmless.
package bulb
