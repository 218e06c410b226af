package link

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSysfsRoot is where interface operstate files live.
const DefaultSysfsRoot = "/sys/class/net"

// commandRunner runs an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // nmcli path is fixed, arguments come from config
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// NMCLIRadio drives NetworkManager through the nmcli command line tool.
type NMCLIRadio struct {
	iface     string
	binary    string
	sysfsRoot string
	run       commandRunner
	lookup    func(name string) ([]net.Addr, error)
}

// NewNMCLIRadio creates a radio bound to the named wireless interface.
func NewNMCLIRadio(iface string) *NMCLIRadio {
	return &NMCLIRadio{
		iface:     iface,
		binary:    "nmcli",
		sysfsRoot: DefaultSysfsRoot,
		run:       execRunner,
		lookup:    interfaceAddrs,
	}
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return ifi.Addrs()
}

// EnableStation turns the Wi-Fi radio on.
func (r *NMCLIRadio) EnableStation(ctx context.Context) error {
	if out, err := r.run(ctx, r.binary, "radio", "wifi", "on"); err != nil {
		return fmt.Errorf("nmcli radio wifi on: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Connect associates with ssid. nmcli is told to wait no longer than the
// context deadline allows.
func (r *NMCLIRadio) Connect(ctx context.Context, ssid, passphrase string) error {
	var args []string
	if secs := waitSeconds(ctx); secs > 0 {
		args = append(args, "--wait", strconv.Itoa(secs))
	}
	args = append(args, "device", "wifi", "connect", ssid)
	if passphrase != "" {
		args = append(args, "password", passphrase)
	}
	args = append(args, "ifname", r.iface)

	if out, err := r.run(ctx, r.binary, args...); err != nil {
		return fmt.Errorf("nmcli connect %q: %w: %s", ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// waitSeconds converts the remaining context time to whole seconds, at
// least one. It returns 0 when ctx has no deadline.
func waitSeconds(ctx context.Context) int {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	secs := int(math.Ceil(time.Until(deadline).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// LinkUp reads the kernel's operstate for the interface.
func (r *NMCLIRadio) LinkUp(context.Context) bool {
	data, err := os.ReadFile(filepath.Join(r.sysfsRoot, r.iface, "operstate"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}

// Address returns the first IPv4 address on the interface.
func (r *NMCLIRadio) Address(context.Context) (netip.Addr, error) {
	addrs, err := r.lookup(r.iface)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("reading %s addresses: %w", r.iface, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			addr, _ := netip.AddrFromSlice(ip4)
			return addr, nil
		}
	}
	return netip.Addr{}, ErrNoAddress
}
