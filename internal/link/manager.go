package link

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/linkbeat/internal/intercore"
)

// State is the connection state held by the Manager.
type State int32

const (
	StateDown State = iota
	StateConnecting
	StateUp
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDown:
		return "down"
	case StateConnecting:
		return "connecting"
	case StateUp:
		return "up"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Code returns the wire status code reported for the state.
func (s State) Code() intercore.StatusCode {
	switch s {
	case StateUp:
		return intercore.StatusUp
	case StateFailed:
		return intercore.StatusFailed
	case StateConnecting:
		return intercore.StatusConnecting
	default:
		return intercore.StatusDown
	}
}

// Radio is the narrow surface of the wireless stack the Manager needs.
type Radio interface {
	// EnableStation puts the radio in station (client) mode.
	EnableStation(ctx context.Context) error

	// Connect associates with the network. The context carries the
	// per-attempt timeout.
	Connect(ctx context.Context, ssid, passphrase string) error

	// LinkUp reports whether the live link currently reads up.
	LinkUp(ctx context.Context) bool

	// Address returns the IPv4 address of the station interface.
	Address(ctx context.Context) (netip.Addr, error)
}

// Reporter receives link transitions. *intercore.Handoff implements it.
type Reporter interface {
	SendStatus(ctx context.Context, code intercore.StatusCode, attempt uint16) error
	SendLinkUp(ctx context.Context, attempt uint16, addr netip.Addr) error
}

// Config holds the association and retry settings of a Manager.
type Config struct {
	SSID       string
	Passphrase string

	// InitialAttempts bounds the first burst after start.
	InitialAttempts int

	// ReconnectAttempts bounds every burst started after link loss.
	ReconnectAttempts int

	// BaseTimeout is the per-attempt timeout of reconnection bursts. The
	// initial burst uses InitialTimeoutFactor times this value.
	BaseTimeout time.Duration

	// RetryDelay is the pause between attempts of one burst.
	RetryDelay time.Duration

	// MonitorInterval is the link polling period outside bursts.
	MonitorInterval time.Duration
}

// InitialTimeoutFactor scales BaseTimeout for the first burst, which pays
// for the first association.
const InitialTimeoutFactor = 5

// DefaultConfig returns a Config with the standard retry policy.
func DefaultConfig(ssid, passphrase string) Config {
	return Config{
		SSID:              ssid,
		Passphrase:        passphrase,
		InitialAttempts:   5,
		ReconnectAttempts: 3,
		BaseTimeout:       2 * time.Second,
		RetryDelay:        2 * time.Second,
		MonitorInterval:   5 * time.Second,
	}
}

// Logger defines the logging interface for the link manager.
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

// Stats is a point-in-time view of the Manager for logs and the status API.
type Stats struct {
	State   State      `json:"-"`
	Attempt uint16     `json:"attempt"`
	Address netip.Addr `json:"address"`

	// Bursts counts connection bursts started since Run.
	Bursts uint64 `json:"bursts"`

	// DownChecks counts consecutive monitoring polls that found the link down.
	DownChecks uint64 `json:"down_checks"`
}

// Manager runs the connection state machine.
//
// Thread Safety:
//   - Run must be called from a single goroutine.
//   - State and Stats may be called from any goroutine.
type Manager struct {
	config   Config
	radio    Radio
	reporter Reporter
	logger   Logger

	state      atomic.Int32
	attempt    atomic.Uint32
	bursts     atomic.Uint64
	downChecks atomic.Uint64

	addrMu sync.Mutex
	addr   netip.Addr

	running atomic.Bool
}

// NewManager creates a link manager. Zero or out-of-range attempt bounds
// and zero durations fall back to DefaultConfig values.
func NewManager(cfg Config, radio Radio, reporter Reporter) *Manager {
	def := DefaultConfig(cfg.SSID, cfg.Passphrase)
	if cfg.InitialAttempts < 1 || cfg.InitialAttempts > int(intercore.MaxAttempt) {
		cfg.InitialAttempts = def.InitialAttempts
	}
	if cfg.ReconnectAttempts < 1 || cfg.ReconnectAttempts > int(intercore.MaxAttempt) {
		cfg.ReconnectAttempts = def.ReconnectAttempts
	}
	if cfg.BaseTimeout <= 0 {
		cfg.BaseTimeout = def.BaseTimeout
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}

	return &Manager{
		config:   cfg,
		radio:    radio,
		reporter: reporter,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.addrMu.Lock()
	addr := m.addr
	m.addrMu.Unlock()

	return Stats{
		State:      m.State(),
		Attempt:    uint16(m.attempt.Load()),
		Address:    addr,
		Bursts:     m.bursts.Load(),
		DownChecks: m.downChecks.Load(),
	}
}

// Run connects, then monitors the link and reconnects on loss, until ctx is
// cancelled. It returns nil on cancellation and an error only when the
// reporter can no longer accept transitions.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	err := m.burst(ctx, m.config.InitialAttempts, m.config.BaseTimeout*InitialTimeoutFactor)
	if err != nil {
		return m.exit(err)
	}

	for {
		if err := m.monitorOnce(ctx); err != nil {
			return m.exit(err)
		}
		if err := sleep(ctx, m.config.MonitorInterval); err != nil {
			return m.exit(err)
		}
	}
}

// exit maps cancellation to a clean return.
func (m *Manager) exit(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// monitorOnce polls the link and starts a reconnection burst if it is down.
func (m *Manager) monitorOnce(ctx context.Context) error {
	if m.radio.LinkUp(ctx) {
		m.downChecks.Store(0)
		return nil
	}

	n := m.downChecks.Add(1)
	m.logger.Warn("link down", "consecutive_checks", n, "state", m.State().String())

	m.setState(StateDown, 0)
	if err := m.report(ctx, StateDown, 0); err != nil {
		return err
	}
	return m.burst(ctx, m.config.ReconnectAttempts, m.config.BaseTimeout)
}

// burst runs up to attempts connection attempts with the given per-attempt
// timeout. It returns an error only when reporting fails.
func (m *Manager) burst(ctx context.Context, attempts int, timeout time.Duration) error {
	m.bursts.Add(1)

	if err := m.radio.EnableStation(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Error("enabling station mode failed", "error", err)
		m.setState(StateFailed, 0)
		return m.report(ctx, StateFailed, 0)
	}

	m.logger.Info("connecting", "ssid", m.config.SSID, "attempts", attempts, "timeout", timeout)
	m.setState(StateConnecting, 0)
	if err := m.report(ctx, StateConnecting, 0); err != nil {
		return err
	}

	for n := 1; n <= attempts; n++ {
		attempt := uint16(n)
		m.setState(StateConnecting, attempt)

		addr, err := m.try(ctx, timeout)
		if err == nil {
			m.setAddress(addr)
			m.setState(StateUp, attempt)
			m.downChecks.Store(0)
			m.logger.Info("link up", "attempt", n, "address", addr.String())
			return m.reporter.SendLinkUp(ctx, attempt, addr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.logger.Warn("connection attempt failed", "attempt", n, "of", attempts, "error", err)
		m.setState(StateFailed, attempt)
		if err := m.report(ctx, StateFailed, attempt); err != nil {
			return err
		}

		if n < attempts {
			if err := sleep(ctx, m.config.RetryDelay); err != nil {
				return err
			}
		}
	}

	m.logger.Error("connection burst exhausted", "attempts", attempts)
	m.setState(StateFailed, 0)
	return m.report(ctx, StateFailed, 0)
}

// try runs one attempt: connect, confirm the live link, then read the
// address. Each step must succeed for the attempt to count.
func (m *Manager) try(ctx context.Context, timeout time.Duration) (netip.Addr, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := m.radio.Connect(attemptCtx, m.config.SSID, m.config.Passphrase); err != nil {
		return netip.Addr{}, fmt.Errorf("connecting: %w", err)
	}
	if !m.radio.LinkUp(attemptCtx) {
		return netip.Addr{}, ErrLinkDown
	}
	addr, err := m.radio.Address(attemptCtx)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("reading address: %w", err)
	}
	if !addr.Is4() || addr.IsUnspecified() {
		return netip.Addr{}, fmt.Errorf("%w: got %s", ErrNoAddress, addr)
	}
	return addr, nil
}

func (m *Manager) report(ctx context.Context, s State, attempt uint16) error {
	if err := m.reporter.SendStatus(ctx, s.Code(), attempt); err != nil {
		return fmt.Errorf("reporting %s: %w", s, err)
	}
	return nil
}

func (m *Manager) setState(s State, attempt uint16) {
	m.state.Store(int32(s))
	m.attempt.Store(uint32(attempt))
}

func (m *Manager) setAddress(addr netip.Addr) {
	m.addrMu.Lock()
	m.addr = addr
	m.addrMu.Unlock()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
