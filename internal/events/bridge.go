package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lumen-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-core/internal/manager"
	"github.com/nerrad567/lumen-core/internal/protocol"
)

// Logger is the minimal logging surface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Broker is the subset of the MQTT client the bridge uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// DeviceManager is the subset of the device manager commands can reach.
type DeviceManager interface {
	TogglePower(target uint64) error
	SetPower(target uint64, level uint16, duration time.Duration) error
	SetColor(target uint64, colour protocol.HSBK, duration time.Duration) error
	SetZones(target uint64, colours []protocol.HSBK, duration time.Duration) error
	Discover() error
}

// Options configures a Bridge.
type Options struct {
	// Broker publishes and subscribes. Required.
	Broker Broker

	// Manager receives dispatched commands. Required.
	Manager DeviceManager

	// QoS for published messages and the command subscription, used
	// verbatim. 0 is a valid level; the config layer supplies the
	// deployment's choice.
	QoS byte

	// Logger receives bridge diagnostics. Optional.
	Logger Logger
}

// Bridge publishes registry events to MQTT and dispatches inbound
// device commands to the manager.
type Bridge struct {
	broker   Broker
	mgr      DeviceManager
	topics   mqtt.Topics
	qos      byte
	stats    bridgeStats
	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Bridge and subscribes it to the device command topic.
func New(opts Options) (*Bridge, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("events: broker is required")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("events: manager is required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("events: qos must be 0, 1 or 2")
	}

	b := &Bridge{
		broker: opts.Broker,
		mgr:    opts.Manager,
		qos:    opts.QoS,
		logger: opts.Logger,
	}

	if err := b.broker.Subscribe(b.topics.AllDeviceCommands(), opts.QoS, b.handleCommand); err != nil {
		return nil, fmt.Errorf("events: subscribe commands: %w", err)
	}

	return b, nil
}

// eventEnvelope is the wire form of a lifecycle event. The embedded
// manager.Event contributes type, device and time.
type eventEnvelope struct {
	ID string `json:"id"`
	manager.Event
}

// HandleEvent publishes a registry event. Wire it to manager.Options.OnEvent.
// State snapshots are retained; lifecycle events are not.
func (b *Bridge) HandleEvent(ev manager.Event) {
	state, err := json.Marshal(ev.Device)
	if err != nil {
		b.stats.publishErrors.Add(1)
		b.logError("marshal device state", err)
		return
	}
	if err := b.broker.Publish(b.topics.DeviceState(ev.Device.ID), state, b.qos, true); err != nil {
		b.stats.publishErrors.Add(1)
		b.logError("publish device state", err)
		return
	}

	env := eventEnvelope{ID: uuid.NewString(), Event: ev}
	payload, err := json.Marshal(env)
	if err != nil {
		b.stats.publishErrors.Add(1)
		b.logError("marshal event", err)
		return
	}
	if err := b.broker.Publish(b.topics.DeviceEvent(string(ev.Type)), payload, b.qos, false); err != nil {
		b.stats.publishErrors.Add(1)
		b.logError("publish event", err)
		return
	}
	b.stats.eventsPublished.Add(1)
}

// command is the wire form of an inbound device command.
type command struct {
	Action     string          `json:"action"`
	Level      *uint16         `json:"level,omitempty"`
	DurationMs uint32          `json:"duration_ms,omitempty"`
	Color      *protocol.HSBK  `json:"color,omitempty"`
	Colors     []protocol.HSBK `json:"colors,omitempty"`
}

// handleCommand parses and dispatches one command message. Errors are
// returned to the MQTT client wrapper for counting; they never stop
// the subscription.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	b.stats.commandsReceived.Add(1)

	target, err := deviceIDFromTopic(topic)
	if err != nil {
		b.stats.commandErrors.Add(1)
		b.logWarn("command on malformed topic", "topic", topic)
		return err
	}

	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.stats.commandErrors.Add(1)
		b.logWarn("malformed command payload", "topic", topic, "error", err)
		return fmt.Errorf("events: decode command: %w", err)
	}

	dur := time.Duration(cmd.DurationMs) * time.Millisecond

	switch cmd.Action {
	case "toggle":
		err = b.mgr.TogglePower(target)
	case "set_power":
		if cmd.Level == nil {
			err = fmt.Errorf("%w: level", ErrMissingField)
			break
		}
		err = b.mgr.SetPower(target, *cmd.Level, dur)
	case "set_color":
		if cmd.Color == nil {
			err = fmt.Errorf("%w: color", ErrMissingField)
			break
		}
		err = b.mgr.SetColor(target, *cmd.Color, dur)
	case "set_zones":
		if len(cmd.Colors) == 0 {
			err = fmt.Errorf("%w: colors", ErrMissingField)
			break
		}
		err = b.mgr.SetZones(target, cmd.Colors, dur)
	case "discover":
		err = b.mgr.Discover()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}

	if err != nil {
		b.stats.commandErrors.Add(1)
		b.logWarn("command failed", "action", cmd.Action, "target", fmt.Sprintf("%016x", target), "error", err)
		return err
	}

	b.stats.commandsDispatched.Add(1)
	b.logDebug("command dispatched", "action", cmd.Action, "target", fmt.Sprintf("%016x", target))
	return nil
}

// deviceIDFromTopic extracts the hexadecimal identity from the final
// topic segment.
func deviceIDFromTopic(topic string) (uint64, error) {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return 0, ErrInvalidDeviceID
	}
	id, err := strconv.ParseUint(topic[idx+1:], 16, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidDeviceID
	}
	return id, nil
}

// SetLogger installs or replaces the logger. Safe to call concurrently.
func (b *Bridge) SetLogger(l Logger) {
	b.loggerMu.Lock()
	b.logger = l
	b.loggerMu.Unlock()
}

func (b *Bridge) logDebug(msg string, args ...any) {
	b.loggerMu.RLock()
	l := b.logger
	b.loggerMu.RUnlock()
	if l != nil {
		l.Debug(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	b.loggerMu.RLock()
	l := b.logger
	b.loggerMu.RUnlock()
	if l != nil {
		l.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	l := b.logger
	b.loggerMu.RUnlock()
	if l != nil {
		l.Error(msg, "error", err)
	}
}
