package main

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/linkbeat/internal/api"
	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
	"github.com/nerrad567/linkbeat/internal/infrastructure/influxdb"
	"github.com/nerrad567/linkbeat/internal/infrastructure/logging"
	"github.com/nerrad567/linkbeat/internal/infrastructure/mqtt"
	"github.com/nerrad567/linkbeat/internal/intercore"
	"github.com/nerrad567/linkbeat/internal/link"
	"github.com/nerrad567/linkbeat/internal/orchestrator"
	"github.com/nerrad567/linkbeat/internal/session"
	"github.com/nerrad567/linkbeat/internal/status"
)

// defaultSimAddress is reported by the simulated radio when none is configured.
var defaultSimAddress = netip.AddrFrom4([4]byte{10, 0, 0, 2})

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting linkbeat",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	handoff := intercore.NewHandoff(cfg.Channel.HandoffDepth)
	defer handoff.Close()

	radio, err := newRadio(cfg.WiFi)
	if err != nil {
		return err
	}
	manager := link.NewManager(linkConfig(cfg.WiFi), radio, handoff)
	manager.SetLogger(log.With("component", "link"))

	controller := session.New(cfg.MQTT, newBrokerFactory(log.With("component", "mqtt")), handoff)
	controller.SetLogger(log.With("component", "session"))
	defer func() {
		log.Info("closing MQTT session")
		if closeErr := controller.Close(); closeErr != nil {
			log.Error("error closing MQTT session", "error", closeErr)
		}
	}()

	out := displayWriter(cfg.Display.Output)
	display := status.NewTerminalDisplay(out, cfg.Display.Width, cfg.Display.TempMessageDuration)
	indicator := status.NewTerminalIndicator(out)
	indicator.SetLogger(log.With("component", "indicator"))
	policy := status.NewPolicy(display, indicator, nil)
	policy.SetLogger(log.With("component", "status"))

	orch := orchestrator.New(orchestratorConfig(cfg), handoff, controller, policy)
	orch.SetLogger(log.With("component", "orchestrator"))

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Device.ID)
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
		orch.SetRecorder(influxClient)
		controller.SetOnConnection(func(err error) {
			influxClient.RecordConnection(err, time.Now())
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the status API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			Device:   cfg.Device,
			Logger:   log.With("component", "api"),
			Snapshot: orch,
			Link:     manager,
			Session:  controller,
			Version:  version,
		}
		if influxClient != nil {
			deps.Telemetry = influxClient
		}
		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete",
		"ssid", cfg.WiFi.SSID,
		"backend", cfg.WiFi.Backend,
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if runErr := manager.Run(gctx); runErr != nil {
			return fmt.Errorf("link manager: %w", runErr)
		}
		return nil
	})
	g.Go(func() error {
		if runErr := orch.Run(gctx); runErr != nil {
			return fmt.Errorf("orchestrator: %w", runErr)
		}
		return nil
	})

	err = g.Wait()
	log.Info("shutdown signal received, cleaning up")
	if err != nil {
		return err
	}

	log.Info("linkbeat stopped")
	return nil
}

// newRadio selects the radio driver named by the configuration.
func newRadio(cfg config.WiFiConfig) (link.Radio, error) {
	switch strings.ToLower(cfg.Backend) {
	case "sim":
		addr := defaultSimAddress
		if cfg.Sim.Address != "" {
			parsed, err := netip.ParseAddr(cfg.Sim.Address)
			if err != nil {
				return nil, fmt.Errorf("parsing simulated address: %w", err)
			}
			addr = parsed
		}
		return link.NewSimRadio(cfg.Sim.Attempts, addr), nil
	case "nmcli", "":
		return link.NewNMCLIRadio(cfg.Interface), nil
	default:
		return nil, fmt.Errorf("unknown wifi backend %q", cfg.Backend)
	}
}

func linkConfig(cfg config.WiFiConfig) link.Config {
	return link.Config{
		SSID:              cfg.SSID,
		Passphrase:        cfg.Password,
		InitialAttempts:   cfg.InitialAttempts,
		ReconnectAttempts: cfg.ReconnectAttempts,
		BaseTimeout:       cfg.BaseTimeout,
		RetryDelay:        cfg.RetryDelay,
		MonitorInterval:   cfg.MonitorInterval,
	}
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		QueueCapacity:     cfg.Channel.QueueCapacity,
		FollowUpTimeout:   cfg.Channel.FollowUpTimeout,
		TickInterval:      cfg.Orchestrator.TickInterval,
		HeartbeatInterval: cfg.MQTT.Heartbeat.Interval,
		Topic:             cfg.MQTT.Topic,
		Payload:           []byte(cfg.MQTT.Heartbeat.Payload),
	}
}

// newBrokerFactory allocates paho-backed brokers with connection logging.
func newBrokerFactory(log *logging.Logger) session.Factory {
	return func(cfg config.MQTTConfig) (session.Broker, error) {
		client, err := mqtt.New(cfg)
		if err != nil {
			return nil, err
		}
		client.SetLogger(log)
		client.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		client.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		return client, nil
	}
}

// displayWriter maps the display output setting to a writer.
func displayWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "none":
		return io.Discard
	default:
		return os.Stdout
	}
}
