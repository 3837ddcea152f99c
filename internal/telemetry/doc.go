// Package telemetry records device state history and manager counters
// to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library's non-blocking
// write API: points are batched per the config's batch_size and
// flush_interval, and async write failures surface through SetOnError.
//
//	client, err := telemetry.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceState(view)
//	client.WriteManagerStats(mgr.Stats())
//
// All methods are safe for concurrent use.
package telemetry
