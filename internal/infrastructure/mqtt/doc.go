// Package mqtt is the daemon's connection to the message bus.
//
// MQTT is the outward-facing surface: device state snapshots and
// lifecycle events flow out to home-automation consumers, and device
// commands flow back in. The broker decouples the daemon from its
// consumers.
//
//	Lumen ↔ MQTT Broker ↔ Automation / Dashboards
//
// The client handles auto-reconnect with exponential backoff,
// subscription replay after reconnect, and a Last Will so consumers
// can tell a crash from a graceful shutdown.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
//
// Topic layout lives in topics.go; everything sits under the "lumen/"
// prefix.
package mqtt
