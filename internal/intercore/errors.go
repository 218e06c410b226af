package intercore

import "errors"

// Domain-specific errors for channel operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrClosed is returned when sending to or receiving from a closed handoff.
	ErrClosed = errors.New("intercore: handoff closed")

	// ErrAttemptOutOfRange is returned when a status attempt counter would
	// overlap the reserved tag space.
	ErrAttemptOutOfRange = errors.New("intercore: attempt counter out of range")

	// ErrTruncated is returned when a multi-word message is missing its
	// follow-up word.
	ErrTruncated = errors.New("intercore: truncated message")

	// ErrNotIPv4 is returned when an address announcement carries a
	// non-IPv4 address.
	ErrNotIPv4 = errors.New("intercore: address is not IPv4")

	// ErrUnknownMessage is returned when encoding a Message variant this
	// package does not know.
	ErrUnknownMessage = errors.New("intercore: unknown message type")
)
