package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
	"github.com/nerrad567/linkbeat/internal/infrastructure/logging"
	"github.com/nerrad567/linkbeat/internal/link"
	"github.com/nerrad567/linkbeat/internal/orchestrator"
	"github.com/nerrad567/linkbeat/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SnapshotSource publishes orchestrator state. *orchestrator.Orchestrator
// implements it.
type SnapshotSource interface {
	Snapshot() orchestrator.Snapshot
}

// LinkSource reports connection manager state. *link.Manager implements it.
type LinkSource interface {
	Stats() link.Stats
}

// SessionSource reports MQTT session state. *session.Controller implements it.
type SessionSource interface {
	Started() bool
	Connected() bool
	InFlight() bool
	Stats() session.Stats
}

// HealthChecker is an optional dependency checked by the metrics endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Device    config.DeviceConfig
	Logger    *logging.Logger
	Snapshot  SnapshotSource
	Link      LinkSource
	Session   SessionSource
	Telemetry HealthChecker // optional
	Version   string
}

// Server is the HTTP status server.
type Server struct {
	cfg       config.APIConfig
	device    config.DeviceConfig
	logger    *logging.Logger
	snapshot  SnapshotSource
	link      LinkSource
	session   SessionSource
	telemetry HealthChecker
	version   string
	startTime time.Time

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ErrMissingDependency)
	}
	if deps.Snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot source is required", ErrMissingDependency)
	}
	if deps.Link == nil {
		return nil, fmt.Errorf("%w: link source is required", ErrMissingDependency)
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("%w: session source is required", ErrMissingDependency)
	}

	return &Server{
		cfg:       deps.Config,
		device:    deps.Device,
		logger:    deps.Logger,
		snapshot:  deps.Snapshot,
		link:      deps.Link,
		session:   deps.Session,
		telemetry: deps.Telemetry,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine. A port
// already in use is reported here rather than from the goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("listening for API: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = ln.Addr()

	s.logger.Info("API server listening", "address", s.addr.String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}
