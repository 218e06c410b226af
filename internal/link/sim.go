package link

import (
	"context"
	"errors"
	"net/netip"
	"sync"
)

// errSimRefused is the failure a scripted attempt returns.
var errSimRefused = errors.New("sim: association refused")

// SimRadio is a scripted Radio for development and tests.
//
// Each Connect consumes the next outcome from the script. When the script
// runs out every further attempt succeeds. Drop simulates link loss.
type SimRadio struct {
	mu        sync.Mutex
	script    []bool
	addr      netip.Addr
	up        bool
	connects  int
	enableErr error
}

// NewSimRadio creates a simulated radio. attempts lists connect outcomes
// in order; addr is reported once associated.
func NewSimRadio(attempts []bool, addr netip.Addr) *SimRadio {
	return &SimRadio{
		script: append([]bool(nil), attempts...),
		addr:   addr,
	}
}

// EnableStation implements Radio.
func (r *SimRadio) EnableStation(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enableErr
}

// FailEnable makes EnableStation return err until called again with nil.
func (r *SimRadio) FailEnable(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enableErr = err
}

// Connect implements Radio.
func (r *SimRadio) Connect(context.Context, string, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connects++
	ok := true
	if len(r.script) > 0 {
		ok = r.script[0]
		r.script = r.script[1:]
	}
	if !ok {
		r.up = false
		return errSimRefused
	}
	r.up = true
	return nil
}

// LinkUp implements Radio.
func (r *SimRadio) LinkUp(context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.up
}

// Address implements Radio.
func (r *SimRadio) Address(context.Context) (netip.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.up || !r.addr.IsValid() {
		return netip.Addr{}, ErrNoAddress
	}
	return r.addr, nil
}

// Drop marks the link as lost and appends outcomes for the next attempts.
func (r *SimRadio) Drop(next ...bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.up = false
	r.script = append(r.script, next...)
}

// Connects returns the number of Connect calls made so far.
func (r *SimRadio) Connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}
