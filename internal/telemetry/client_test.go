package telemetry_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/bulb"
	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/manager"
	"github.com/nerrad567/lumen-core/internal/protocol"
	"github.com/nerrad567/lumen-core/internal/telemetry"
)

// testConfig matches the local dev InfluxDB from docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "lumen-dev-token",
		Org:           "lumen",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips if no local InfluxDB is reachable.
func connectOrSkip(t *testing.T) *telemetry.Client {
	t.Helper()
	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := telemetry.Connect(cfg)
	if !errors.Is(err, telemetry.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := telemetry.Connect(cfg)
	if !errors.Is(err, telemetry.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWrites(t *testing.T) {
	client := connectOrSkip(t)

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	flushAndCheck := func(t *testing.T) {
		t.Helper()
		client.Flush()
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		if writeErr != nil {
			t.Errorf("async write error = %v", writeErr)
			writeErr = nil
		}
	}

	t.Run("device state", func(t *testing.T) {
		label := "Kitchen"
		power := protocol.PowerOn
		client.WriteDeviceState(bulb.View{
			ID:         "d073d5000001",
			Label:      &label,
			PowerLevel: &power,
			ColorMode:  "single",
			Color:      &protocol.HSBK{Hue: 21845, Saturation: 65535, Brightness: 32768, Kelvin: 3500},
		})
		flushAndCheck(t)
	})

	t.Run("bare snapshot skipped", func(t *testing.T) {
		// A discovery-only record has no chartable fields.
		client.WriteDeviceState(bulb.View{ID: "d073d5000002", ColorMode: "unknown"})
		flushAndCheck(t)
	})

	t.Run("manager stats", func(t *testing.T) {
		client.WriteManagerStats(manager.Stats{
			DatagramsReceived: 120,
			MessagesApplied:   98,
			Devices:           4,
		})
		flushAndCheck(t)
	})
}

func TestClose(t *testing.T) {
	client := connectOrSkip(t)

	client.WriteManagerStats(manager.Stats{Devices: 1})
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes and flushes after Close must be silent no-ops.
	client.WriteManagerStats(manager.Stats{Devices: 2})
	client.Flush()
}
