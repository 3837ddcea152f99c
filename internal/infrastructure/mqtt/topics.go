package mqtt

import "fmt"

// Topic prefixes for the Lumen MQTT surface.
//
// All device topics use the flat scheme: lumen/{category}/{protocol}/{id}
const (
	// TopicPrefix is the base for all Lumen topics.
	TopicPrefix = "lumen"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lumen/system"
)

// Topics provides builders for Lumen MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("d073d5123456")
//	// Returns: "lumen/state/lifx/d073d5123456"
type Topics struct{}

// DeviceState returns the topic for device state snapshots.
//
// Example: lumen/state/lifx/d073d5123456
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/lifx/%s", TopicPrefix, deviceID)
}

// DeviceEvent returns the topic for registry lifecycle events.
//
// Example: lumen/event/lifx/discovered
func (Topics) DeviceEvent(eventType string) string {
	return fmt.Sprintf("%s/event/lifx/%s", TopicPrefix, eventType)
}

// DeviceCommand returns the topic for inbound device commands.
//
// Example: lumen/command/lifx/d073d5123456
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/lifx/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the system status topic, used for the online
// announcement and the Last Will and Testament.
//
// Example: lumen/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceCommands returns a pattern matching device commands for
// every device.
//
// Pattern: lumen/command/lifx/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/lifx/+", TopicPrefix)
}

// AllDeviceStates returns a pattern matching all device state topics.
//
// Pattern: lumen/state/lifx/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/lifx/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Lumen topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: lumen/#
func (Topics) AllTopics() string {
	return "lumen/#"
}
