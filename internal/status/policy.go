package status

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/netip"

	"github.com/nerrad567/linkbeat/internal/intercore"
)

// Pixel rows of the screen regions.
const (
	RowLink    = 0
	RowAddress = 16
	RowMQTT    = 32
)

// Fixed screen texts.
const (
	BootBanner    = "System up\nwaiting for WiFi"
	QueueFullText = "Queue full!"
	AckOKText     = "Ping ACK: OK"
	AckFailText   = "Ping ACK: FAILED"
	PingText      = "ping..."
)

// Logger defines the logging interface for the status package.
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

// linkLook is how one link status is shown.
type linkLook struct {
	label string
	color Color
}

var linkLooks = map[intercore.StatusCode]linkLook{
	intercore.StatusDown:       {"WiFi: trying", Yellow},
	intercore.StatusUp:         {"WiFi: connected", Green},
	intercore.StatusFailed:     {"WiFi: failed", Red},
	intercore.StatusConnecting: {"WiFi: connecting", Blue},
}

var unknownLook = linkLook{"WiFi: unknown", White}

// LinkLabel returns the screen text for a link status, with the attempt
// suffix when the link is not up.
func LinkLabel(s intercore.Status) string {
	look, ok := linkLooks[s.Code]
	if !ok {
		look = unknownLook
	}
	if s.Attempt > 0 && s.Code != intercore.StatusUp {
		return fmt.Sprintf("%s (T%d)", look.label, s.Attempt)
	}
	return look.label
}

// LinkColor returns the indicator colour for a link status code.
func LinkColor(code intercore.StatusCode) Color {
	if look, ok := linkLooks[code]; ok {
		return look.color
	}
	return unknownLook.color
}

// Policy decides what the display and indicator show for each event.
//
// Thread Safety: not safe for concurrent use; it belongs to the orchestrator.
type Policy struct {
	display   Display
	indicator Indicator
	rng       *rand.Rand
	logger    Logger
}

// NewPolicy creates a policy. A nil rng is seeded randomly.
func NewPolicy(display Display, indicator Indicator, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Policy{
		display:   display,
		indicator: indicator,
		rng:       rng,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the policy.
func (p *Policy) SetLogger(logger Logger) {
	p.logger = logger
}

// Boot shows the start-up colour and banner.
func (p *Policy) Boot(ctx context.Context) error {
	p.indicator.SetColor(Purple)
	return p.display.ShowTemporary(ctx, BootBanner, RowLink)
}

// ShowStatus draws a link status frame.
func (p *Policy) ShowStatus(s intercore.Status, addr netip.Addr) error {
	p.indicator.SetColor(LinkColor(s.Code))

	p.display.Clear()
	p.drawAddress(addr)
	p.display.DrawLine(LinkLabel(s), RowLink)
	p.logger.Info("link status", "status", s.Code.String(), "attempt", s.Attempt)
	return p.display.Render()
}

// ShowAck draws a publish acknowledgment frame. A successful ack gets a
// fresh random colour so consecutive heartbeats are visibly distinct.
func (p *Policy) ShowAck(ack intercore.PublishAck, addr netip.Addr) error {
	p.display.Clear()
	p.drawAddress(addr)

	if ack.OK() {
		c := p.RandomColor()
		p.display.DrawLine(AckOKText, RowMQTT)
		p.indicator.SetColor(c)
		p.logger.Info("heartbeat acknowledged", "color", c.Hex())
	} else {
		p.display.DrawLine(AckFailText, RowMQTT)
		p.indicator.SetColor(Red)
		p.logger.Warn("heartbeat failed", "status", ack.Status)
	}
	return p.display.Render()
}

// ShowAddress draws a newly announced address.
func (p *Policy) ShowAddress(addr netip.Addr) error {
	p.display.Clear()
	p.drawAddress(addr)
	p.logger.Info("address received", "address", addr.String())
	return p.display.Render()
}

// ShowMQTT writes an MQTT status line over the current frame.
func (p *Policy) ShowMQTT(text string, addr netip.Addr) error {
	p.drawAddress(addr)
	p.display.DrawLine("MQTT: "+text, RowMQTT)
	p.logger.Debug("mqtt status", "text", text)
	return p.display.Render()
}

// ShowHeartbeat draws the frame shown while a heartbeat is being sent.
func (p *Policy) ShowHeartbeat(addr netip.Addr) error {
	p.display.Clear()
	return p.ShowMQTT(PingText, addr)
}

// ShowTemporary shows text alone on the screen for a moment.
func (p *Policy) ShowTemporary(ctx context.Context, text string) error {
	return p.display.ShowTemporary(ctx, text, RowLink)
}

// AddressLabel is the address row text.
func AddressLabel(addr netip.Addr) string {
	return "IP: " + addr.String()
}

// drawAddress redraws the known address so a new frame does not lose it.
func (p *Policy) drawAddress(addr netip.Addr) {
	if addr.IsValid() && !addr.IsUnspecified() {
		p.display.DrawLine(AddressLabel(addr), RowAddress)
	}
}

// RandomColor returns a random colour that is never dim: when all three
// channels come out below a quarter of full scale, one of them is raised to
// the upper half.
func (p *Policy) RandomColor() Color {
	level := func() uint16 { return uint16(p.rng.IntN(int(MaxLevel) + 1)) }
	bright := func() uint16 { return MaxLevel/2 + uint16(p.rng.IntN(int(MaxLevel/2))) }

	c := Color{R: level(), G: level(), B: level()}
	if c.Dim() {
		switch p.rng.IntN(3) {
		case 0:
			c.R = bright()
		case 1:
			c.G = bright()
		default:
			c.B = bright()
		}
	}
	return c
}
