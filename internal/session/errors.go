package session

import "errors"

// Domain-specific errors for the session package.
var (
	// ErrInvalidBroker is returned by Start when the broker address does not
	// resolve.
	ErrInvalidBroker = errors.New("session: invalid broker address")

	// ErrClientAlloc is returned by Start when the transport client cannot
	// be created.
	ErrClientAlloc = errors.New("session: cannot allocate client")

	// ErrAlreadyStarted is returned by Start after a successful Start or while one is running.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrNotStarted is returned by Publish before Start succeeded.
	ErrNotStarted = errors.New("session: not started")

	// ErrNotConnected is returned by Publish while the broker is unreachable.
	ErrNotConnected = errors.New("session: not connected")

	// ErrPublishInFlight is returned by Publish while an earlier publish is
	// still waiting for its completion.
	ErrPublishInFlight = errors.New("session: publish already in flight")
)
