package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/linkbeat/internal/intercore"
)

// Config is the root configuration structure for linkbeat.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	WiFi         WiFiConfig         `yaml:"wifi"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Channel      ChannelConfig      `yaml:"channel"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Display      DisplayConfig      `yaml:"display"`
	API          APIConfig          `yaml:"api"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DeviceConfig identifies this device in logs, telemetry and the status API.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// WiFiConfig contains wireless association and retry settings.
type WiFiConfig struct {
	// Backend selects the radio driver: "nmcli" or "sim".
	Backend string `yaml:"backend"`

	// Interface is the wireless interface name (e.g. "wlan0").
	Interface string `yaml:"interface"`

	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`

	// InitialAttempts bounds the first connection burst after start.
	// Default: 5
	InitialAttempts int `yaml:"initial_attempts"`

	// ReconnectAttempts bounds each burst started after link loss.
	// Default: 3
	ReconnectAttempts int `yaml:"reconnect_attempts"`

	// BaseTimeout is the per-attempt timeout of a reconnection burst.
	// The initial burst uses five times this value.
	// Default: 2s
	BaseTimeout time.Duration `yaml:"base_timeout"`

	// RetryDelay is the pause between failed attempts within a burst.
	// Default: 2s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MonitorInterval is how often the live link is polled once a burst ends.
	// Default: 5s
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	// Sim configures the scripted radio used when Backend is "sim".
	Sim SimConfig `yaml:"sim"`
}

// SimConfig scripts the simulated radio.
type SimConfig struct {
	// Attempts lists connect outcomes in order; true succeeds. Once the
	// script is exhausted every attempt succeeds.
	Attempts []bool `yaml:"attempts"`

	// Address is the IPv4 address reported after a successful connect.
	Address string `yaml:"address"`
}

// MQTTConfig contains MQTT broker connection and heartbeat settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// QoS must be 0. Heartbeats are fire-and-forget; the key exists so a
	// configured higher level is rejected instead of silently ignored.
	QoS       int                 `yaml:"qos"`
	Topic     string              `yaml:"topic"`
	Heartbeat HeartbeatConfig     `yaml:"heartbeat"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HeartbeatConfig controls the periodic publish.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
	Payload  string        `yaml:"payload"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// ChannelConfig sizes the inter-context channel.
type ChannelConfig struct {
	HandoffDepth    int           `yaml:"handoff_depth"`
	QueueCapacity   int           `yaml:"queue_capacity"`
	FollowUpTimeout time.Duration `yaml:"follow_up_timeout"`
}

// OrchestratorConfig controls the poll loop.
type OrchestratorConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// DisplayConfig controls the terminal status panel.
type DisplayConfig struct {
	// Output is "stdout", "stderr" or "none".
	Output              string        `yaml:"output"`
	Width               int           `yaml:"width"`
	TempMessageDuration time.Duration `yaml:"temp_message_duration"`
}

// APIConfig contains the read-only HTTP status server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the working directory, if present (never overrides
//     variables already set in the environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: LINKBEAT_SECTION_KEY
// For example: LINKBEAT_WIFI_SSID, LINKBEAT_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "linkbeat-001",
			Name: "linkbeat",
		},
		WiFi: WiFiConfig{
			Backend:           "nmcli",
			Interface:         "wlan0",
			InitialAttempts:   5,
			ReconnectAttempts: 3,
			BaseTimeout:       2 * time.Second,
			RetryDelay:        2 * time.Second,
			MonitorInterval:   5 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "linkbeat",
			},
			QoS:   0,
			Topic: "linkbeat/heartbeat",
			Heartbeat: HeartbeatConfig{
				Interval: 5 * time.Second,
				Payload:  "PING",
			},
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Channel: ChannelConfig{
			HandoffDepth:    intercore.DefaultHandoffDepth,
			QueueCapacity:   intercore.DefaultQueueCapacity,
			FollowUpTimeout: time.Second,
		},
		Orchestrator: OrchestratorConfig{
			TickInterval: 50 * time.Millisecond,
		},
		Display: DisplayConfig{
			Output:              "stdout",
			Width:               24,
			TempMessageDuration: 2 * time.Second,
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8089,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LINKBEAT_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// WiFi
	if v := os.Getenv("LINKBEAT_WIFI_BACKEND"); v != "" {
		cfg.WiFi.Backend = v
	}
	if v := os.Getenv("LINKBEAT_WIFI_INTERFACE"); v != "" {
		cfg.WiFi.Interface = v
	}
	if v := os.Getenv("LINKBEAT_WIFI_SSID"); v != "" {
		cfg.WiFi.SSID = v
	}
	if v := os.Getenv("LINKBEAT_WIFI_PASSWORD"); v != "" {
		cfg.WiFi.Password = v
	}

	// MQTT
	if v := os.Getenv("LINKBEAT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LINKBEAT_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing LINKBEAT_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("LINKBEAT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LINKBEAT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("LINKBEAT_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}

	// InfluxDB
	if v := os.Getenv("LINKBEAT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("LINKBEAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Every problem is collected so a single run reports all of them.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}

	// WiFi validation
	switch c.WiFi.Backend {
	case "nmcli":
		if c.WiFi.Interface == "" {
			errs = append(errs, "wifi.interface is required for the nmcli backend")
		}
		if c.WiFi.SSID == "" {
			errs = append(errs, "wifi.ssid is required (set LINKBEAT_WIFI_SSID environment variable)")
		}
	case "sim":
		if c.WiFi.Sim.Address != "" {
			if ip := net.ParseIP(c.WiFi.Sim.Address); ip == nil || ip.To4() == nil || ip.IsUnspecified() {
				errs = append(errs, "wifi.sim.address must be a non-zero IPv4 address")
			}
		}
	default:
		errs = append(errs, `wifi.backend must be "nmcli" or "sim"`)
	}
	maxAttempt := int(intercore.MaxAttempt)
	if c.WiFi.InitialAttempts < 1 || c.WiFi.InitialAttempts > maxAttempt {
		errs = append(errs, fmt.Sprintf("wifi.initial_attempts must be between 1 and %d", maxAttempt))
	}
	if c.WiFi.ReconnectAttempts < 1 || c.WiFi.ReconnectAttempts > maxAttempt {
		errs = append(errs, fmt.Sprintf("wifi.reconnect_attempts must be between 1 and %d", maxAttempt))
	}
	if c.WiFi.BaseTimeout <= 0 {
		errs = append(errs, "wifi.base_timeout must be positive")
	}
	if c.WiFi.RetryDelay < 0 {
		errs = append(errs, "wifi.retry_delay must not be negative")
	}
	if c.WiFi.MonitorInterval <= 0 {
		errs = append(errs, "wifi.monitor_interval must be positive")
	}

	// MQTT validation
	if strings.TrimSpace(c.MQTT.Broker.Host) == "" || strings.ContainsAny(c.MQTT.Broker.Host, " /:") {
		errs = append(errs, "mqtt.broker.host must be a hostname or IPv4 address")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS != 0 {
		errs = append(errs, "mqtt.qos must be 0: heartbeats are published at most once")
	}
	if c.MQTT.Topic == "" || strings.ContainsAny(c.MQTT.Topic, "+#") {
		errs = append(errs, "mqtt.topic is required and must not contain wildcards")
	}
	if c.MQTT.Heartbeat.Interval <= 0 {
		errs = append(errs, "mqtt.heartbeat.interval must be positive")
	}

	// Channel validation
	if c.Channel.HandoffDepth < 1 {
		errs = append(errs, "channel.handoff_depth must be at least 1")
	}
	if c.Channel.QueueCapacity < 1 {
		errs = append(errs, "channel.queue_capacity must be at least 1")
	}
	if c.Channel.FollowUpTimeout <= 0 {
		errs = append(errs, "channel.follow_up_timeout must be positive")
	}

	if c.Orchestrator.TickInterval <= 0 {
		errs = append(errs, "orchestrator.tick_interval must be positive")
	}

	switch strings.ToLower(c.Display.Output) {
	case "stdout", "stderr", "none":
	default:
		errs = append(errs, `display.output must be "stdout", "stderr" or "none"`)
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// InitialTimeout returns the per-attempt timeout of the first connection burst.
func (w WiFiConfig) InitialTimeout() time.Duration {
	return 5 * w.BaseTimeout
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
