package session

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
	"github.com/nerrad567/linkbeat/internal/intercore"
)

// defaultResolveTimeout bounds broker name resolution in Start.
const defaultResolveTimeout = 5 * time.Second

// Broker is the transport a Controller drives. *mqtt.Client implements it.
type Broker interface {
	// ConnectAsync starts connecting and reports the outcome to onResult,
	// which may run on any goroutine, including the caller's before
	// ConnectAsync returns.
	ConnectAsync(onResult func(error)) error

	// PublishAsync hands a message to the transport. If it returns nil,
	// done is called exactly once with the outcome.
	PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) error

	IsConnected() bool
}

// Factory allocates a Broker for the configured endpoint.
type Factory func(cfg config.MQTTConfig) (Broker, error)

// Resolver looks up broker host names. net.DefaultResolver implements it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Acker delivers publish acknowledgments. *intercore.Handoff implements it.
type Acker interface {
	SendPublishAck(ctx context.Context, status uint16) error
	TrySendPublishAck(status uint16) (bool, error)
}

// Logger defines the logging interface for the session controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats counts publish outcomes since the controller was created.
type Stats struct {
	Accepted  uint64 `json:"accepted"`
	AckedOK   uint64 `json:"acked_ok"`
	AckedFail uint64 `json:"acked_failed"`
	Rejected  uint64 `json:"rejected"`
	Stale     uint64 `json:"stale_completions"`
}

// Controller owns the MQTT session and correlates publish completions.
//
// Thread Safety:
//   - Start and Publish are meant to be called from one goroutine, the
//     orchestrator's, but are safe for concurrent use.
//   - Completion callbacks may arrive on any goroutine.
type Controller struct {
	cfg      config.MQTTConfig
	factory  Factory
	resolver Resolver
	acks     Acker
	logger   Logger

	resolveTimeout time.Duration

	mu       sync.Mutex
	starting bool
	broker   Broker
	inFlight uuid.UUID
	resolved string

	onConnection func(err error)

	// ackCtx bounds acks sent from callbacks; Close cancels it.
	ackCtx    context.Context
	ackCancel context.CancelFunc
	ackWG     sync.WaitGroup

	accepted  atomic.Uint64
	ackedOK   atomic.Uint64
	ackedFail atomic.Uint64
	rejected  atomic.Uint64
	stale     atomic.Uint64
}

// New creates a controller for cfg. Nothing is allocated or contacted
// until Start.
func New(cfg config.MQTTConfig, factory Factory, acks Acker) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:            cfg,
		factory:        factory,
		resolver:       net.DefaultResolver,
		acks:           acks,
		logger:         noopLogger{},
		resolveTimeout: defaultResolveTimeout,
		ackCtx:         ctx,
		ackCancel:      cancel,
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetResolver replaces the host name resolver.
func (c *Controller) SetResolver(r Resolver) {
	c.resolver = r
}

// SetOnConnection sets a hook called with every connect outcome. The
// outcome is advisory: it never produces a channel message.
func (c *Controller) SetOnConnection(fn func(err error)) {
	c.mu.Lock()
	c.onConnection = fn
	c.mu.Unlock()
}

// Start resolves the broker, allocates the transport and begins connecting.
//
// It returns as soon as the connect is issued. Failures here are returned
// to the caller only; nothing is sent on the channel. The lock is not held
// while resolving or connecting, so the connect result may be delivered
// before Start returns.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.broker != nil || c.starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	broker, resolved, err := c.open(ctx)

	c.mu.Lock()
	c.starting = false
	if err == nil {
		c.broker = broker
		c.resolved = resolved
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.logger.Info("MQTT session started",
		"broker", c.cfg.Broker.Host,
		"resolved", resolved,
		"port", c.cfg.Broker.Port,
	)
	return nil
}

// open resolves the broker, allocates a client and issues the connect.
func (c *Controller) open(ctx context.Context) (Broker, string, error) {
	resolved, err := c.resolve(ctx, c.cfg.Broker.Host)
	if err != nil {
		return nil, "", err
	}

	broker, err := c.factory(c.cfg)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrClientAlloc, err)
	}
	if broker == nil {
		return nil, "", fmt.Errorf("%w: factory returned no client", ErrClientAlloc)
	}

	if err := broker.ConnectAsync(c.handleConnectResult); err != nil {
		return nil, "", fmt.Errorf("issuing connect: %w", err)
	}
	return broker, resolved, nil
}

// resolve turns the configured host into an address. IP literals are
// accepted as-is; names go through the resolver.
func (c *Controller) resolve(ctx context.Context, host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" || strings.ContainsAny(host, " /:@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidBroker, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String(), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()
	addrs, err := c.resolver.LookupHost(lookupCtx, host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidBroker, host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: %q has no addresses", ErrInvalidBroker, host)
	}
	return addrs[0], nil
}

func (c *Controller) handleConnectResult(err error) {
	if err != nil {
		c.logger.Warn("MQTT connect failed", "broker", c.cfg.Broker.Host, "error", err)
	} else {
		c.logger.Info("MQTT connected", "broker", c.cfg.Broker.Host)
	}

	c.mu.Lock()
	hook := c.onConnection
	c.mu.Unlock()
	if hook != nil {
		hook(err)
	}
}

// Publish sends payload to topic at QoS 0, not retained.
//
// It never blocks on the broker. The outcome is reported as exactly one
// PublishAck on the channel; the returned error only says which path was
// taken.
func (c *Controller) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	broker := c.broker
	switch {
	case broker == nil:
		c.mu.Unlock()
		c.reject("not started")
		return ErrNotStarted
	case !broker.IsConnected():
		c.mu.Unlock()
		c.reject("not connected")
		return ErrNotConnected
	case c.inFlight != uuid.Nil:
		prev := c.inFlight
		c.mu.Unlock()
		c.reject("publish in flight", "in_flight", prev.String())
		return ErrPublishInFlight
	}
	id := uuid.New()
	c.inFlight = id
	c.mu.Unlock()

	err := broker.PublishAsync(topic, payload, 0, false, func(err error) {
		c.complete(id, err)
	})
	if err != nil {
		// The transport refused the request, so no completion will come.
		if c.release(id) {
			c.reject("transport refused", "error", err)
		}
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	c.accepted.Add(1)
	c.logger.Debug("publish accepted", "topic", topic, "request_id", id.String())
	return nil
}

// release clears the in-flight slot if it still holds id.
func (c *Controller) release(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight != id {
		return false
	}
	c.inFlight = uuid.Nil
	return true
}

// complete handles a transport completion for request id.
func (c *Controller) complete(id uuid.UUID, err error) {
	if !c.release(id) {
		c.stale.Add(1)
		c.logger.Warn("dropping stale publish completion", "request_id", id.String(), "error", err)
		return
	}

	status := intercore.AckSuccess
	if err != nil {
		status = intercore.AckFailure
		c.ackedFail.Add(1)
		c.logger.Warn("publish failed", "request_id", id.String(), "error", err)
	} else {
		c.ackedOK.Add(1)
		c.logger.Debug("publish completed", "request_id", id.String())
	}

	if err := c.acks.SendPublishAck(c.ackCtx, status); err != nil {
		c.logger.Error("delivering publish ack", "request_id", id.String(), "error", err)
	}
}

// reject reports a publish that never reached the transport.
//
// It runs on the caller's goroutine, which is also the channel's consumer,
// so it must not block on the channel: when the FIFO is full the ack is
// handed to a goroutine instead.
func (c *Controller) reject(reason string, args ...any) {
	c.rejected.Add(1)
	c.ackedFail.Add(1)
	c.logger.Warn("publish rejected", append([]any{"reason", reason}, args...)...)

	ok, err := c.acks.TrySendPublishAck(intercore.AckFailure)
	if err != nil {
		c.logger.Error("delivering publish ack", "error", err)
		return
	}
	if ok {
		return
	}

	c.ackWG.Add(1)
	go func() {
		defer c.ackWG.Done()
		if err := c.acks.SendPublishAck(c.ackCtx, intercore.AckFailure); err != nil {
			c.logger.Error("delivering publish ack", "error", err)
		}
	}()
}

// Started reports whether Start succeeded.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broker != nil
}

// Connected reports whether the broker session is up.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	broker := c.broker
	c.mu.Unlock()
	return broker != nil && broker.IsConnected()
}

// InFlight reports whether a publish is waiting for its completion.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight != uuid.Nil
}

// Stats returns the publish counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Accepted:  c.accepted.Load(),
		AckedOK:   c.ackedOK.Load(),
		AckedFail: c.ackedFail.Load(),
		Rejected:  c.rejected.Load(),
		Stale:     c.stale.Load(),
	}
}

// Close stops ack delivery and closes the transport if it can be closed.
// Acks still pending on a full channel are abandoned.
func (c *Controller) Close() error {
	c.ackCancel()
	c.ackWG.Wait()

	c.mu.Lock()
	broker := c.broker
	c.mu.Unlock()

	if closer, ok := broker.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
