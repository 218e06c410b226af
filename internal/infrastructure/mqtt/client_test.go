package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/linkbeat/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "linkbeat-test",
			TLS:      false,
		},
		QoS:   0,
		Topic: "linkbeat/test/heartbeat",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Fakes
// =============================================================================

// fakeToken is a paho token completed by the test.
type fakeToken struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newFakeToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakePaho implements the parts of pahomqtt.Client the wrapper uses.
type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	connected    bool
	connectTok   *fakeToken
	publishToks  []*fakeToken
	published    []string
	disconnected bool
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Connect() pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectTok = newFakeToken()
	return f.connectTok
}

func (f *fakePaho) Publish(topic string, _ byte, _ bool, _ interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := newFakeToken()
	f.publishToks = append(f.publishToks, tok)
	f.published = append(f.published, topic)
	return tok
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	f.connected = false
}

func (f *fakePaho) lastPublish() *fakeToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishToks[len(f.publishToks)-1]
}

// newFakeClient returns a connected Client backed by a fakePaho.
func newFakeClient(t *testing.T) (*Client, *fakePaho) {
	t.Helper()
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fake := &fakePaho{connected: true}
	c.client = fake
	c.setConnected(true)
	return c, fake
}

func waitResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
		return nil
	}
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew(t *testing.T) {
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true before connecting, want false")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.MQTTConfig)
	}{
		{name: "empty host", mutate: func(c *config.MQTTConfig) { c.Broker.Host = "" }},
		{name: "zero port", mutate: func(c *config.MQTTConfig) { c.Broker.Port = 0 }},
		{name: "port too high", mutate: func(c *config.MQTTConfig) { c.Broker.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "beat", Password: "pw"}
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers = %v, want [ssl://127.0.0.1:8883]", opts.Servers)
	}
	if opts.ClientID != "linkbeat-test" {
		t.Errorf("ClientID = %q, want linkbeat-test", opts.ClientID)
	}
	if opts.Username != "beat" || opts.Password != "pw" {
		t.Errorf("credentials = %q/%q, want beat/pw", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect || !opts.ConnectRetry {
		t.Errorf("CleanSession/AutoReconnect/ConnectRetry = %v/%v/%v, want all true",
			opts.CleanSession, opts.AutoReconnect, opts.ConnectRetry)
	}
	if opts.ConnectRetryInterval != time.Second {
		t.Errorf("ConnectRetryInterval = %v, want 1s", opts.ConnectRetryInterval)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS 1.2", opts.TLSConfig)
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q, want tcp://127.0.0.1:1883", got)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

// =============================================================================
// Connect Tests
// =============================================================================

func TestConnectAsync_Success(t *testing.T) {
	c, fake := newFakeClient(t)
	c.setConnected(false)

	result := make(chan error, 1)
	if err := c.ConnectAsync(func(err error) { result <- err }); err != nil {
		t.Fatalf("ConnectAsync() error = %v", err)
	}

	select {
	case <-result:
		t.Fatal("callback fired before the connect token completed")
	case <-time.After(20 * time.Millisecond):
	}

	fake.mu.Lock()
	tok := fake.connectTok
	fake.mu.Unlock()
	tok.complete(nil)

	if err := waitResult(t, result); err != nil {
		t.Errorf("connect result = %v, want nil", err)
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after successful connect")
	}
}

func TestConnectAsync_Failure(t *testing.T) {
	c, fake := newFakeClient(t)
	c.setConnected(false)

	result := make(chan error, 1)
	if err := c.ConnectAsync(func(err error) { result <- err }); err != nil {
		t.Fatalf("ConnectAsync() error = %v", err)
	}

	fake.mu.Lock()
	tok := fake.connectTok
	fake.mu.Unlock()
	tok.complete(errors.New("connection refused"))

	if err := waitResult(t, result); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("connect result = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectionCallbacks(t *testing.T) {
	c, _ := newFakeClient(t)

	connected := make(chan struct{}, 1)
	lost := make(chan error, 1)
	c.SetOnConnect(func() { connected <- struct{}{} })
	c.SetOnDisconnect(func(err error) { lost <- err })

	c.handleDisconnect(errors.New("eof"))
	if err := waitResult(t, lost); err == nil || err.Error() != "eof" {
		t.Errorf("disconnect callback err = %v, want eof", err)
	}
	c.connMu.RLock()
	if c.connected {
		t.Error("connected = true after disconnect")
	}
	c.connMu.RUnlock()

	c.handleConnect()
	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connect callback not called")
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after reconnect")
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	c, fake := newFakeClient(t)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}

	fake.Disconnect(0)
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestPublishAsync_Validation(t *testing.T) {
	c, fake := newFakeClient(t)

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", qos: 0, wantErr: ErrInvalidTopic},
		{name: "invalid qos", topic: "t", qos: 3, wantErr: ErrInvalidQoS},
		{name: "oversized payload", topic: "t", payload: make([]byte, maxPayloadSize+1), wantErr: ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := c.PublishAsync(tt.topic, tt.payload, tt.qos, false, func(error) { called = true })
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PublishAsync() error = %v, want %v", err, tt.wantErr)
			}
			if called {
				t.Error("done called for a rejected publish")
			}
		})
	}

	if len(fake.published) != 0 {
		t.Errorf("published %v, want nothing", fake.published)
	}
}

func TestPublishAsync_NotConnected(t *testing.T) {
	c, fake := newFakeClient(t)
	fake.Disconnect(0)

	err := c.PublishAsync("linkbeat/test", []byte("ping"), 0, false, func(error) {
		t.Error("done called for a rejected publish")
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishAsync() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishAsync_Completion(t *testing.T) {
	tests := []struct {
		name     string
		tokenErr error
		wantErr  error
	}{
		{name: "success", tokenErr: nil, wantErr: nil},
		{name: "broker error", tokenErr: errors.New("not authorised"), wantErr: ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newFakeClient(t)

			result := make(chan error, 2)
			if err := c.PublishAsync("linkbeat/test", []byte("ping"), 0, false, func(err error) { result <- err }); err != nil {
				t.Fatalf("PublishAsync() error = %v", err)
			}

			fake.lastPublish().complete(tt.tokenErr)

			err := waitResult(t, result)
			if tt.wantErr == nil && err != nil {
				t.Errorf("done(%v), want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("done(%v), want %v", err, tt.wantErr)
			}

			select {
			case extra := <-result:
				t.Errorf("done called twice, second with %v", extra)
			case <-time.After(20 * time.Millisecond):
			}
		})
	}
}

func TestPublishAsync_TimeoutReportsOnce(t *testing.T) {
	c, fake := newFakeClient(t)
	c.publishTimeout = 10 * time.Millisecond

	result := make(chan error, 2)
	if err := c.PublishAsync("linkbeat/test", []byte("ping"), 0, false, func(err error) { result <- err }); err != nil {
		t.Fatalf("PublishAsync() error = %v", err)
	}

	if err := waitResult(t, result); !errors.Is(err, ErrTimeout) {
		t.Errorf("done(%v), want ErrTimeout", err)
	}

	// A late completion must not produce a second callback.
	fake.lastPublish().complete(nil)
	select {
	case extra := <-result:
		t.Errorf("done called again with %v after timeout", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublish_Sync(t *testing.T) {
	c, fake := newFakeClient(t)

	go func() {
		for {
			fake.mu.Lock()
			n := len(fake.publishToks)
			fake.mu.Unlock()
			if n > 0 {
				fake.lastPublish().complete(nil)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	if err := c.Publish("linkbeat/test", []byte("ping"), 0, false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	c, fake := newFakeClient(t)

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !fake.disconnected {
		t.Error("Close() did not disconnect paho client")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}
