package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lumen-core/internal/bulb"
	"github.com/nerrad567/lumen-core/internal/manager"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// handleListDevices returns all known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.manager.Devices()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device snapshot by hex identity.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	target, ok := deviceID(w, r)
	if !ok {
		return
	}

	view, err := s.manager.Device(target)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// addDeviceRequest registers a device at a known address, for devices
// that broadcast discovery cannot reach.
type addDeviceRequest struct {
	Addr string `json:"addr"`
}

// handleAddDevice queries a device directly by address. The device
// appears in the registry once it answers.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Addr == "" {
		writeBadRequest(w, "addr is required")
		return
	}

	addr, err := resolveDeviceAddr(req.Addr)
	if err != nil {
		writeBadRequest(w, "invalid address: "+req.Addr)
		return
	}

	if err := s.manager.AddBulb(addr); err != nil {
		writeInternalError(w, "failed to query device")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queried", "addr": addr.String()})
}

// handleDiscovery triggers a broadcast discovery round.
func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	if err := s.manager.Discover(); err != nil {
		writeInternalError(w, "discovery failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "discovering"})
}

// handleTogglePower flips the device power state.
func (s *Server) handleTogglePower(w http.ResponseWriter, r *http.Request) {
	target, ok := deviceID(w, r)
	if !ok {
		return
	}
	s.writeCommandResult(w, s.manager.TogglePower(target))
}

type setPowerRequest struct {
	Level      *uint16 `json:"level"`
	DurationMs uint32  `json:"duration_ms"`
}

// handleSetPower sets the device power level with an optional fade.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	target, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req setPowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Level == nil {
		writeBadRequest(w, "level is required")
		return
	}

	err := s.manager.SetPower(target, *req.Level, duration(req.DurationMs))
	s.writeCommandResult(w, err)
}

type setColorRequest struct {
	Color      *protocol.HSBK `json:"color"`
	DurationMs uint32         `json:"duration_ms"`
}

// handleSetColor sets the device colour with an optional fade.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	target, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req setColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Color == nil {
		writeBadRequest(w, "color is required")
		return
	}

	err := s.manager.SetColor(target, *req.Color, duration(req.DurationMs))
	s.writeCommandResult(w, err)
}

type setZonesRequest struct {
	Colors     []protocol.HSBK `json:"colors"`
	DurationMs uint32          `json:"duration_ms"`
}

// handleSetZones sets per-zone colours on a multizone device.
func (s *Server) handleSetZones(w http.ResponseWriter, r *http.Request) {
	target, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req setZonesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Colors) == 0 {
		writeBadRequest(w, "colors is required")
		return
	}

	err := s.manager.SetZones(target, req.Colors, duration(req.DurationMs))
	s.writeCommandResult(w, err)
}

// writeCommandResult translates a command outcome into a response.
// Commands are fire-and-forget, so success means "sent", not "applied".
func (s *Server) writeCommandResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "sent"})
	case errors.Is(err, bulb.ErrUnknownDevice):
		writeNotFound(w, "device not found")
	case errors.Is(err, manager.ErrTooManyZones):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "failed to send command")
	}
}

// deviceID parses the {id} route parameter as a hex identity. On
// failure it writes a 400 response and returns false.
func deviceID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id := chi.URLParam(r, "id")
	target, err := strconv.ParseUint(id, 16, 64)
	if err != nil || target == 0 {
		writeBadRequest(w, "invalid device id: "+id)
		return 0, false
	}
	return target, true
}

// resolveDeviceAddr parses host or host:port, defaulting to the
// well-known lighting port.
func resolveDeviceAddr(s string) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", s)
	if err == nil {
		return addr, nil
	}
	// Retry with the default port for a bare host.
	return net.ResolveUDPAddr("udp4", net.JoinHostPort(s, strconv.Itoa(protocol.Port)))
}

// duration converts a wire duration in milliseconds to a Duration.
func duration(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
