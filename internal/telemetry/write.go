package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/lumen-core/internal/bulb"
	"github.com/nerrad567/lumen-core/internal/manager"
)

// WriteDeviceState records a device state snapshot. The write is
// non-blocking; points are batched and sent asynchronously. Snapshot
// fields not yet known for the device are omitted.
func (c *Client) WriteDeviceState(v bulb.View) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"device_id":  v.ID,
		"color_mode": v.ColorMode,
	}
	if v.ProductName != "" {
		tags["product"] = v.ProductName
	}
	if v.Label != nil {
		tags["label"] = *v.Label
	}

	fields := map[string]interface{}{}
	if v.PowerLevel != nil {
		fields["power_level"] = int64(*v.PowerLevel)
	}
	if v.Color != nil {
		fields["hue"] = int64(v.Color.Hue)
		fields["saturation"] = int64(v.Color.Saturation)
		fields["brightness"] = int64(v.Color.Brightness)
		fields["kelvin"] = int64(v.Color.Kelvin)
	}
	if v.ZoneCount != nil {
		fields["zone_count"] = int64(*v.ZoneCount)
	}
	if len(fields) == 0 {
		// A bare discovery record carries nothing worth charting yet.
		return
	}

	point := write.NewPoint("device_state", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteManagerStats records a snapshot of manager counters, for
// charting traffic and error rates over time.
func (c *Client) WriteManagerStats(s manager.Stats) {
	if !c.IsConnected() {
		return
	}

	// #nosec G115 -- counters are far below int64 range in practice
	fields := map[string]interface{}{
		"datagrams_received": int64(s.DatagramsReceived),
		"datagrams_dropped":  int64(s.DatagramsDropped),
		"decode_errors":      int64(s.DecodeErrors),
		"inconsistencies":    int64(s.Inconsistencies),
		"messages_applied":   int64(s.MessagesApplied),
		"sends_attempted":    int64(s.SendsAttempted),
		"send_errors":        int64(s.SendErrors),
		"events_dropped":     int64(s.EventsDropped),
		"devices":            int64(s.Devices),
	}

	point := write.NewPoint("manager", nil, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
