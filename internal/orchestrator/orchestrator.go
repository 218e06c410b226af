package orchestrator

import (
	"context"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/nerrad567/linkbeat/internal/intercore"
	"github.com/nerrad567/linkbeat/internal/status"
)

// Channel is the consumer end of the channel. *intercore.Handoff implements it.
type Channel interface {
	TryReceive() (intercore.Word, bool)
	NextWord(ctx context.Context) func() (intercore.Word, error)
}

// Session is the MQTT session. *session.Controller implements it.
type Session interface {
	Start(ctx context.Context) error
	Publish(topic string, payload []byte) error
}

// Presenter shows events to a person. *status.Policy implements it.
type Presenter interface {
	Boot(ctx context.Context) error
	ShowStatus(s intercore.Status, addr netip.Addr) error
	ShowAck(ack intercore.PublishAck, addr netip.Addr) error
	ShowAddress(addr netip.Addr) error
	ShowMQTT(text string, addr netip.Addr) error
	ShowHeartbeat(addr netip.Addr) error
	ShowTemporary(ctx context.Context, text string) error
}

// Recorder receives every dispatched message for telemetry.
type Recorder interface {
	RecordStatus(s intercore.Status, at time.Time)
	RecordAddress(addr netip.Addr, at time.Time)
	RecordAck(ack intercore.PublishAck, at time.Time)
}

// Logger defines the logging interface for the orchestrator.
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

// Screen texts for the MQTT row.
const (
	startingText   = "starting..."
	startErrorText = "start error"
)

// Config controls the orchestrator loop.
type Config struct {
	// QueueCapacity bounds the messages waiting for dispatch.
	QueueCapacity int

	// FollowUpTimeout bounds the wait for the second word of an address
	// announcement.
	FollowUpTimeout time.Duration

	// TickInterval is the polling period of Run.
	TickInterval time.Duration

	// HeartbeatInterval is the period between heartbeat publishes.
	HeartbeatInterval time.Duration

	Topic   string
	Payload []byte
}

// DefaultConfig returns the standard loop settings.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:     intercore.DefaultQueueCapacity,
		FollowUpTimeout:   time.Second,
		TickInterval:      50 * time.Millisecond,
		HeartbeatInterval: 5 * time.Second,
		Topic:             "linkbeat/heartbeat",
		Payload:           []byte("PING"),
	}
}

// NetworkState is the state only the orchestrator goroutine reads or writes.
type NetworkState struct {
	// LastAddress is the most recently announced address. The zero value and
	// 0.0.0.0 both mean none yet.
	LastAddress netip.Addr

	// MQTTStarted is set by the first start attempt, whatever its outcome,
	// and never cleared.
	MQTTStarted bool
}

// hasAddress reports whether a usable address has been announced.
func (s NetworkState) hasAddress() bool {
	return s.LastAddress.IsValid() && !s.LastAddress.IsUnspecified()
}

// Snapshot is a copy of the observable orchestrator state.
type Snapshot struct {
	LinkStatus    string    `json:"link_status"`
	LinkAttempt   uint16    `json:"link_attempt"`
	Address       string    `json:"address,omitempty"`
	MQTTStarted   bool      `json:"mqtt_started"`
	LastAck       string    `json:"last_ack,omitempty"`
	LastAckAt     time.Time `json:"last_ack_at,omitzero"`
	NextHeartbeat time.Time `json:"next_heartbeat,omitzero"`
	Heartbeats    uint64    `json:"heartbeats"`
	Dispatched    uint64    `json:"dispatched"`
	Dropped       uint64    `json:"dropped"`
	Malformed     uint64    `json:"malformed"`
	QueueLength   int       `json:"queue_length"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Orchestrator drains the channel and drives the heartbeat.
//
// Thread Safety:
//   - Tick and Run must be called from a single goroutine.
//   - Snapshot and State may be called from any goroutine.
type Orchestrator struct {
	config    Config
	channel   Channel
	queue     *intercore.Queue
	session   Session
	presenter Presenter
	recorder  Recorder
	logger    Logger

	state         NetworkState
	nextHeartbeat time.Time

	lastStatus intercore.Status
	haveStatus bool
	lastAck    *intercore.PublishAck
	lastAckAt  time.Time
	heartbeats uint64
	dispatched uint64
	dropped    uint64
	malformed  uint64

	snapshot atomic.Pointer[Snapshot]
	running  atomic.Bool
}

// New creates an orchestrator. Zero config values fall back to
// DefaultConfig.
func New(cfg Config, channel Channel, session Session, presenter Presenter) *Orchestrator {
	def := DefaultConfig()
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.FollowUpTimeout <= 0 {
		cfg.FollowUpTimeout = def.FollowUpTimeout
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.Payload == nil {
		cfg.Payload = def.Payload
	}

	o := &Orchestrator{
		config:    cfg,
		channel:   channel,
		queue:     intercore.NewQueue(cfg.QueueCapacity),
		session:   session,
		presenter: presenter,
		logger:    noopLogger{},
	}
	o.publishSnapshot(time.Time{})
	return o
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetRecorder sets the telemetry recorder. nil disables recording.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// State returns a copy of the network state. Only meaningful from the
// orchestrator goroutine or after Run returned.
func (o *Orchestrator) State() NetworkState {
	return o.state
}

// Snapshot returns the state published at the end of the last tick.
func (o *Orchestrator) Snapshot() Snapshot {
	return *o.snapshot.Load()
}

// Run shows the boot screen and then ticks every TickInterval until ctx is
// cancelled. It returns nil on cancellation.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if err := o.presenter.Boot(ctx); err != nil {
		o.logger.Warn("boot screen failed", "error", err)
	}

	ticker := time.NewTicker(o.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			o.Tick(ctx, now)
		}
	}
}

// Tick runs one iteration of the loop at time now.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	if w, ok := o.channel.TryReceive(); ok {
		o.receive(ctx, w, now)
	}

	if msg, ok := o.queue.Dequeue(); ok {
		o.dispatch(msg, now)
	}

	o.maybeStartSession(ctx, now)
	o.maybeHeartbeat(now)

	o.publishSnapshot(now)
}

// receive handles one word taken off the channel.
func (o *Orchestrator) receive(ctx context.Context, w intercore.Word, now time.Time) {
	if w.High() == intercore.TagAddressAnnounce {
		followCtx, cancel := context.WithTimeout(ctx, o.config.FollowUpTimeout)
		msg, err := intercore.Decode(w, o.channel.NextWord(followCtx))
		cancel()
		if err != nil {
			o.malformed++
			o.logger.Warn("dropping address announcement", "word", w.String(), "error", err)
			return
		}
		// Addresses bypass the queue.
		o.dispatch(msg, now)
		return
	}

	msg, err := intercore.Decode(w, nil)
	if err != nil {
		o.malformed++
		o.logger.Warn("dropping undecodable word", "word", w.String(), "error", err)
		return
	}

	if !o.queue.Enqueue(msg) {
		o.dropped++
		o.logger.Warn("message queue full, dropping message",
			"word", w.String(),
			"capacity", o.queue.Cap(),
			"dropped_total", o.dropped,
		)
		if err := o.presenter.ShowTemporary(ctx, status.QueueFullText); err != nil {
			o.logger.Warn("display failed", "error", err)
		}
	}
}

// dispatch hands one message to the presenter and recorder.
func (o *Orchestrator) dispatch(msg intercore.Message, now time.Time) {
	o.dispatched++

	var err error
	switch m := msg.(type) {
	case intercore.Status:
		o.lastStatus = m
		o.haveStatus = true
		err = o.presenter.ShowStatus(m, o.state.LastAddress)
		if o.recorder != nil {
			o.recorder.RecordStatus(m, now)
		}

	case intercore.AddressAnnounce:
		o.state.LastAddress = m.Addr
		err = o.presenter.ShowAddress(m.Addr)
		if o.recorder != nil {
			o.recorder.RecordAddress(m.Addr, now)
		}

	case intercore.PublishAck:
		o.lastAck = &m
		o.lastAckAt = now
		err = o.presenter.ShowAck(m, o.state.LastAddress)
		if o.recorder != nil {
			o.recorder.RecordAck(m, now)
		}

	default:
		o.logger.Warn("unknown message type", "type", msg)
	}

	if err != nil {
		o.logger.Warn("display failed", "error", err)
	}
}

// maybeStartSession starts the MQTT session the first time an address is
// known. A failed start is not retried.
func (o *Orchestrator) maybeStartSession(ctx context.Context, now time.Time) {
	if o.state.MQTTStarted || !o.state.hasAddress() {
		return
	}

	o.logger.Info("address known, starting MQTT session", "address", o.state.LastAddress.String())
	o.showMQTT(startingText)

	err := o.session.Start(ctx)
	o.state.MQTTStarted = true
	o.nextHeartbeat = now.Add(o.config.HeartbeatInterval)

	if err != nil {
		o.logger.Error("starting MQTT session", "error", err)
		o.showMQTT(startErrorText)
	}
}

// maybeHeartbeat publishes the heartbeat when it is due.
func (o *Orchestrator) maybeHeartbeat(now time.Time) {
	if !o.state.MQTTStarted || now.Before(o.nextHeartbeat) {
		return
	}

	if err := o.presenter.ShowHeartbeat(o.state.LastAddress); err != nil {
		o.logger.Warn("display failed", "error", err)
	}

	o.heartbeats++
	if err := o.session.Publish(o.config.Topic, o.config.Payload); err != nil {
		// The session reports the failure on the channel as well.
		o.logger.Debug("heartbeat not sent", "error", err)
	}
	o.nextHeartbeat = now.Add(o.config.HeartbeatInterval)
}

func (o *Orchestrator) showMQTT(text string) {
	if err := o.presenter.ShowMQTT(text, o.state.LastAddress); err != nil {
		o.logger.Warn("display failed", "error", err)
	}
}

func (o *Orchestrator) publishSnapshot(now time.Time) {
	s := &Snapshot{
		MQTTStarted:   o.state.MQTTStarted,
		NextHeartbeat: o.nextHeartbeat,
		Heartbeats:    o.heartbeats,
		Dispatched:    o.dispatched,
		Dropped:       o.dropped,
		Malformed:     o.malformed,
		QueueLength:   o.queue.Len(),
		UpdatedAt:     now,
	}
	if o.haveStatus {
		s.LinkStatus = o.lastStatus.Code.String()
		s.LinkAttempt = o.lastStatus.Attempt
	}
	if o.state.hasAddress() {
		s.Address = o.state.LastAddress.String()
	}
	if o.lastAck != nil {
		s.LastAck = "failed"
		if o.lastAck.OK() {
			s.LastAck = "ok"
		}
		s.LastAckAt = o.lastAckAt
	}
	o.snapshot.Store(s)
}
