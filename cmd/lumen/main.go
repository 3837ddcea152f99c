// Lumen - LAN lighting control
//
// This is the main entry point for the Lumen daemon. Lumen discovers
// LIFX-protocol devices on the local network, maintains a live registry
// of their state, and exposes control surfaces over HTTP and MQTT:
//   - Broadcast discovery and per-field staleness refresh over UDP
//   - REST API for dashboards and tooling
//   - MQTT state/event stream plus command intake
//   - Optional InfluxDB state history
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/lumen-core/internal/api"
	"github.com/nerrad567/lumen-core/internal/events"
	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/infrastructure/logging"
	"github.com/nerrad567/lumen-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-core/internal/manager"
	"github.com/nerrad567/lumen-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// The device manager owns the UDP socket and registry. Fatal socket
	// errors surface on this channel rather than crashing the process.
	fatalCh := make(chan error, 1)

	mgr, err := manager.New(manager.Options{
		Source: cfg.LIFX.Source,
		Bind:   cfg.LIFX.Bind,
		Logger: log,
		OnFatal: func(err error) {
			select {
			case fatalCh <- err:
			default:
			}
		},
	})
	if err != nil {
		return fmt.Errorf("starting device manager: %w", err)
	}
	defer func() {
		log.Info("stopping device manager")
		if closeErr := mgr.Close(); closeErr != nil {
			log.Error("error closing device manager", "error", closeErr)
		}
	}()
	log.Info("device manager started",
		"bind", cfg.LIFX.Bind,
		"source", fmt.Sprintf("%08x", cfg.LIFX.Source),
	)

	// Wire the MQTT bridge to registry events (if MQTT is up)
	var bridge *events.Bridge
	if mqttClient != nil {
		bridge, err = events.New(events.Options{
			Broker:  mqttClient,
			Manager: mgr,
			QoS:     byte(cfg.MQTT.QoS),
			Logger:  log,
		})
		if err != nil {
			return fmt.Errorf("starting event bridge: %w", err)
		}
		log.Info("event bridge started")
	}

	// Registry events fan out to the bridge and state history.
	mgr.SetOnEvent(func(ev manager.Event) {
		if bridge != nil {
			bridge.HandleEvent(ev)
		}
		if influxClient != nil {
			influxClient.WriteDeviceState(ev.Device)
		}
	})

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Manager: mgr,
		MQTT:    brokerStatus(mqttClient),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Kick off the first discovery round immediately, then run the
	// periodic sweeps until shutdown.
	if err := mgr.Discover(); err != nil {
		log.Warn("initial discovery failed", "error", err)
	}
	go runSweeps(ctx, cfg, mgr, influxClient, log)

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-fatalCh:
		log.Error("device manager failed", "error", err)
		return fmt.Errorf("device manager: %w", err)
	}

	log.Info("Lumen stopped")
	return nil
}

// runSweeps drives periodic discovery and staleness refresh until the
// context is cancelled.
func runSweeps(ctx context.Context, cfg *config.Config, mgr *manager.Manager, influxClient *telemetry.Client, log *logging.Logger) {
	discoveryTicker := time.NewTicker(cfg.GetDiscoveryInterval())
	defer discoveryTicker.Stop()
	refreshTicker := time.NewTicker(cfg.GetRefreshInterval())
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-discoveryTicker.C:
			if err := mgr.Discover(); err != nil {
				log.Warn("discovery sweep failed", "error", err)
			}
			if influxClient != nil {
				influxClient.WriteManagerStats(mgr.Stats())
			}
		case <-refreshTicker.C:
			if err := mgr.Refresh(); err != nil {
				log.Warn("refresh sweep failed", "error", err)
			}
		}
	}
}

// brokerStatus converts a possibly-nil client into the API's optional
// status interface. A typed nil inside a non-nil interface would make
// the nil check in the handler useless.
func brokerStatus(c *mqtt.Client) api.BrokerStatus {
	if c == nil {
		return nil
	}
	return c
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
