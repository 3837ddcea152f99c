// Package api provides the HTTP REST API for Lumen.
//
// It exposes the device registry, device commands, and system metrics
// to dashboards and automation tooling.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Endpoints
//
//	GET  /api/v1/health              liveness probe
//	GET  /api/v1/metrics             runtime and manager counters
//	GET  /api/v1/devices             list known devices
//	POST /api/v1/devices             register a device by address
//	GET  /api/v1/devices/{id}        one device snapshot
//	POST /api/v1/devices/{id}/toggle flip power state
//	POST /api/v1/devices/{id}/power  set power level with fade
//	POST /api/v1/devices/{id}/color  set colour with fade
//	POST /api/v1/devices/{id}/zones  set per-zone colours
//	POST /api/v1/discovery           trigger a discovery round
//
// Commands are fire-and-forget: a 202 response means the command was
// put on the wire, not that the device applied it. State convergence
// is observed through subsequent snapshots.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
