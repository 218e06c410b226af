package link

import "errors"

// Domain-specific errors for the link package.
var (
	// ErrLinkDown is returned when a connect call succeeded but the live link
	// check does not confirm it.
	ErrLinkDown = errors.New("link: link check reports down")

	// ErrNoAddress is returned when the interface holds no IPv4 address.
	ErrNoAddress = errors.New("link: no IPv4 address on interface")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("link: manager already running")
)
