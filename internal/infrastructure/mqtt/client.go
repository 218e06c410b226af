package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for linkbeat.
//
// Connecting and publishing are asynchronous: both return as soon as the
// request is handed to paho, and report the outcome later through a
// callback. Paho retries the broker connection on its own until Close.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Callbacks run on goroutines owned by the client.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// publishTimeout bounds how long a publish may wait for completion
	// before its callback reports ErrTimeout.
	publishTimeout time.Duration

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// New allocates a client for the configured broker without connecting.
//
// Returns:
//   - *Client: Client ready for ConnectAsync
//   - error: ErrInvalidConfig if the broker endpoint is unusable
func New(cfg config.MQTTConfig) (*Client, error) {
	if cfg.Broker.Host == "" {
		return nil, fmt.Errorf("%w: broker host is empty", ErrInvalidConfig)
	}
	if cfg.Broker.Port < 1 || cfg.Broker.Port > 65535 {
		return nil, fmt.Errorf("%w: broker port %d", ErrInvalidConfig, cfg.Broker.Port)
	}

	opts := buildClientOptions(cfg)

	c := &Client{
		cfg:            cfg,
		options:        opts,
		publishTimeout: defaultPublishTimeout,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("reconnecting to MQTT broker", "broker", brokerURL(cfg))
		}
	})

	c.client = pahomqtt.NewClient(opts)
	return c, nil
}

// ConnectAsync starts connecting to the broker and returns immediately.
//
// onResult, if non-nil, is called once from another goroutine: with nil
// once the connection is established, or with an error wrapping
// ErrConnectionFailed if paho gives up (for example after Close).
func (c *Client) ConnectAsync(onResult func(error)) error {
	if c.client == nil {
		return ErrNotConnected
	}

	token := c.client.Connect()
	go func() {
		<-token.Done()
		err := token.Error()
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		} else {
			c.setConnected(true)
		}
		if onResult != nil {
			onResult(err)
		}
	}()
	return nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.setConnected(true)

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// Close disconnects from the MQTT broker, giving pending publishes a short
// quiesce period.
//
// Returns:
//   - error: always nil; a client that never connected is not an error
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
