package status

import (
	"bytes"
	"context"
	"math/rand/v2"
	"net/netip"
	"testing"

	"github.com/nerrad567/linkbeat/internal/intercore"
)

// ============================================================
// Helpers
// ============================================================

type recordingIndicator struct {
	colors []Color
}

func (r *recordingIndicator) SetColor(c Color) { r.colors = append(r.colors, c) }

func (r *recordingIndicator) last() Color {
	if len(r.colors) == 0 {
		return Off
	}
	return r.colors[len(r.colors)-1]
}

func newTestPolicy(seed uint64) (*Policy, *TerminalDisplay, *recordingIndicator) {
	d := NewTerminalDisplay(&bytes.Buffer{}, 0, 0)
	ind := &recordingIndicator{}
	p := NewPolicy(d, ind, rand.New(rand.NewPCG(seed, seed)))
	return p, d, ind
}

var addr = netip.MustParseAddr("10.0.0.5")

// ============================================================
// Labels and colours
// ============================================================

func TestLinkLabel(t *testing.T) {
	tests := []struct {
		status intercore.Status
		want   string
	}{
		{intercore.Status{Code: intercore.StatusDown}, "WiFi: trying"},
		{intercore.Status{Code: intercore.StatusConnecting}, "WiFi: connecting"},
		{intercore.Status{Code: intercore.StatusFailed, Attempt: 2}, "WiFi: failed (T2)"},
		{intercore.Status{Code: intercore.StatusUp, Attempt: 3}, "WiFi: connected"},
		{intercore.Status{Code: intercore.StatusCode(9)}, "WiFi: unknown"},
		{intercore.Status{Code: intercore.StatusCode(9), Attempt: 1}, "WiFi: unknown (T1)"},
	}
	for _, tt := range tests {
		if got := LinkLabel(tt.status); got != tt.want {
			t.Errorf("LinkLabel(%+v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestLinkColor(t *testing.T) {
	tests := []struct {
		code intercore.StatusCode
		want Color
	}{
		{intercore.StatusDown, Yellow},
		{intercore.StatusUp, Green},
		{intercore.StatusFailed, Red},
		{intercore.StatusConnecting, Blue},
		{intercore.StatusCode(7), White},
	}
	for _, tt := range tests {
		if got := LinkColor(tt.code); got != tt.want {
			t.Errorf("LinkColor(%d) = %+v, want %+v", tt.code, got, tt.want)
		}
	}
}

// ============================================================
// Frames
// ============================================================

func TestShowStatus_KeepsAddress(t *testing.T) {
	p, d, ind := newTestPolicy(1)

	if err := p.ShowStatus(intercore.Status{Code: intercore.StatusFailed, Attempt: 1}, addr); err != nil {
		t.Fatalf("ShowStatus() error = %v", err)
	}
	lines := d.Lines()
	if lines[0] != "WiFi: failed (T1)" {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[2] != "IP: 10.0.0.5" {
		t.Errorf("row 2 = %q, want address", lines[2])
	}
	if ind.last() != Red {
		t.Errorf("indicator = %+v, want red", ind.last())
	}
}

func TestShowStatus_NoAddressYet(t *testing.T) {
	p, d, _ := newTestPolicy(1)

	if err := p.ShowStatus(intercore.Status{Code: intercore.StatusConnecting}, netip.Addr{}); err != nil {
		t.Fatalf("ShowStatus() error = %v", err)
	}
	if got := d.Lines()[2]; got != "" {
		t.Errorf("row 2 = %q, want empty before any address", got)
	}
}

func TestShowAck(t *testing.T) {
	p, d, ind := newTestPolicy(7)

	if err := p.ShowAck(intercore.PublishAck{Status: intercore.AckSuccess}, addr); err != nil {
		t.Fatalf("ShowAck(ok) error = %v", err)
	}
	if got := d.Lines()[4]; got != AckOKText {
		t.Errorf("row 4 = %q, want %q", got, AckOKText)
	}
	if got := d.Lines()[2]; got != "IP: 10.0.0.5" {
		t.Errorf("row 2 = %q, want address", got)
	}
	if ind.last().Dim() {
		t.Errorf("ack colour %+v is dim", ind.last())
	}

	if err := p.ShowAck(intercore.PublishAck{Status: intercore.AckFailure}, addr); err != nil {
		t.Fatalf("ShowAck(fail) error = %v", err)
	}
	if got := d.Lines()[4]; got != AckFailText {
		t.Errorf("row 4 = %q, want %q", got, AckFailText)
	}
	if ind.last() != Red {
		t.Errorf("indicator = %+v, want red", ind.last())
	}
}

func TestShowAddress(t *testing.T) {
	p, d, _ := newTestPolicy(1)
	d.DrawLine("stale", RowLink)

	if err := p.ShowAddress(addr); err != nil {
		t.Fatalf("ShowAddress() error = %v", err)
	}
	lines := d.Lines()
	if lines[0] != "" || lines[2] != "IP: 10.0.0.5" || lines[3] != "" {
		t.Errorf("lines = %q", lines)
	}
}

func TestAddressRow_SameOnEveryFrame(t *testing.T) {
	p, d, _ := newTestPolicy(1)

	frames := []struct {
		name string
		show func() error
	}{
		{name: "announcement", show: func() error { return p.ShowAddress(addr) }},
		{name: "status", show: func() error { return p.ShowStatus(intercore.Status{Code: intercore.StatusUp, Attempt: 1}, addr) }},
		{name: "ack", show: func() error { return p.ShowAck(intercore.PublishAck{Status: intercore.AckSuccess}, addr) }},
		{name: "heartbeat", show: func() error { return p.ShowHeartbeat(addr) }},
	}

	for _, f := range frames {
		if err := f.show(); err != nil {
			t.Fatalf("%s: error = %v", f.name, err)
		}
		if got := d.Lines()[2]; got != AddressLabel(addr) {
			t.Errorf("%s: address row = %q, want %q", f.name, got, AddressLabel(addr))
		}
	}
}

func TestAddressRow_UnspecifiedNotDrawn(t *testing.T) {
	p, d, _ := newTestPolicy(1)
	zero := netip.IPv4Unspecified()

	if err := p.ShowAddress(zero); err != nil {
		t.Fatalf("ShowAddress() error = %v", err)
	}
	if got := d.Lines()[2]; got != "" {
		t.Errorf("address row = %q after 0.0.0.0, want empty", got)
	}

	if err := p.ShowStatus(intercore.Status{Code: intercore.StatusConnecting}, zero); err != nil {
		t.Fatalf("ShowStatus() error = %v", err)
	}
	if got := d.Lines()[2]; got != "" {
		t.Errorf("address row = %q on a status frame, want empty", got)
	}
}

func TestShowMQTT_OverlaysFrame(t *testing.T) {
	p, d, _ := newTestPolicy(1)
	p.ShowStatus(intercore.Status{Code: intercore.StatusUp, Attempt: 1}, addr)

	if err := p.ShowMQTT("ping...", addr); err != nil {
		t.Fatalf("ShowMQTT() error = %v", err)
	}
	lines := d.Lines()
	if lines[0] != "WiFi: connected" {
		t.Errorf("row 0 = %q, want link status kept", lines[0])
	}
	if lines[4] != "MQTT: ping..." {
		t.Errorf("row 4 = %q", lines[4])
	}
}

func TestShowHeartbeat_ClearsFrame(t *testing.T) {
	p, d, _ := newTestPolicy(1)
	p.ShowStatus(intercore.Status{Code: intercore.StatusUp, Attempt: 1}, addr)

	if err := p.ShowHeartbeat(addr); err != nil {
		t.Fatalf("ShowHeartbeat() error = %v", err)
	}
	lines := d.Lines()
	if lines[0] != "" {
		t.Errorf("row 0 = %q, want cleared", lines[0])
	}
	if lines[2] != "IP: 10.0.0.5" || lines[4] != "MQTT: ping..." {
		t.Errorf("lines = %q", lines)
	}
}

func TestBoot(t *testing.T) {
	p, d, ind := newTestPolicy(1)

	if err := p.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if ind.last() != Purple {
		t.Errorf("indicator = %+v, want purple", ind.last())
	}
	if d.Frames() != 2 {
		t.Errorf("Frames() = %d, want banner and clear", d.Frames())
	}
}

// ============================================================
// Random colour
// ============================================================

func TestRandomColor_NeverDim(t *testing.T) {
	p, _, _ := newTestPolicy(42)
	for i := 0; i < 10000; i++ {
		if c := p.RandomColor(); c.Dim() {
			t.Fatalf("RandomColor() #%d = %+v is dim", i, c)
		}
	}
}

func TestRandomColor_Deterministic(t *testing.T) {
	a, _, _ := newTestPolicy(99)
	b, _, _ := newTestPolicy(99)
	for i := 0; i < 10; i++ {
		if ca, cb := a.RandomColor(), b.RandomColor(); ca != cb {
			t.Fatalf("draw %d: %+v != %+v with same seed", i, ca, cb)
		}
	}
}
