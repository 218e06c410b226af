package intercore

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Word is a single 32-bit handoff word.
type Word uint32

// Reserved tags and counter bounds for the upper half of a Word.
const (
	// TagAddressAnnounce marks a word whose follow-up word is an IPv4 address.
	TagAddressAnnounce uint16 = 0xFFFE

	// TagPublishAck marks a publish acknowledgment; the lower half is the
	// acknowledgment status.
	TagPublishAck uint16 = 0x9999

	// MaxAttempt is the largest attempt counter a retry loop may report.
	// Both reserved tags sit above it.
	MaxAttempt uint16 = 0x00FF
)

// Publish acknowledgment status values.
const (
	AckSuccess uint16 = 0
	AckFailure uint16 = 1
)

// makeWord packs the two halves of a handoff word.
func makeWord(high, low uint16) Word {
	return Word(uint32(high)<<16 | uint32(low))
}

// High returns the tag-or-attempt half of the word.
func (w Word) High() uint16 {
	return uint16(w >> 16)
}

// Low returns the status-or-payload half of the word.
func (w Word) Low() uint16 {
	return uint16(w)
}

// String formats the word as fixed-width hex.
func (w Word) String() string {
	return fmt.Sprintf("0x%08X", uint32(w))
}

// StatusCode is the coarse link status carried by a Status message.
type StatusCode uint16

// Link status codes as they appear on the wire.
const (
	StatusDown       StatusCode = 0
	StatusUp         StatusCode = 1
	StatusFailed     StatusCode = 2
	StatusConnecting StatusCode = 3
)

// String returns a human-readable status name.
func (s StatusCode) String() string {
	switch s {
	case StatusDown:
		return "down"
	case StatusUp:
		return "up"
	case StatusFailed:
		return "failed"
	case StatusConnecting:
		return "connecting"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(s))
	}
}

// Message is one logical channel message. The concrete type is one of
// Status, AddressAnnounce or PublishAck.
type Message interface {
	isMessage()
}

// Status reports a link status transition. Attempt is 1-based inside a retry
// burst and 0 when no attempt is meaningful.
type Status struct {
	Attempt uint16
	Code    StatusCode
}

// AddressAnnounce carries the network address obtained on link up.
type AddressAnnounce struct {
	Addr netip.Addr
}

// PublishAck carries the outcome of one publish request.
type PublishAck struct {
	Status uint16
}

func (Status) isMessage()          {}
func (AddressAnnounce) isMessage() {}
func (PublishAck) isMessage()      {}

// OK reports whether the publish succeeded.
func (a PublishAck) OK() bool {
	return a.Status == AckSuccess
}

// Encode converts a message into its handoff words.
//
// Status and PublishAck take one word, AddressAnnounce takes two.
func Encode(msg Message) ([]Word, error) {
	switch m := msg.(type) {
	case Status:
		if m.Attempt > MaxAttempt {
			return nil, fmt.Errorf("%w: %d > %d", ErrAttemptOutOfRange, m.Attempt, MaxAttempt)
		}
		return []Word{makeWord(m.Attempt, uint16(m.Code))}, nil

	case PublishAck:
		return []Word{makeWord(TagPublishAck, m.Status)}, nil

	case AddressAnnounce:
		if !m.Addr.Is4() {
			return nil, fmt.Errorf("%w: %s", ErrNotIPv4, m.Addr)
		}
		octets := m.Addr.As4()
		return []Word{
			makeWord(TagAddressAnnounce, 0),
			Word(binary.BigEndian.Uint32(octets[:])),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
}

// Decode turns the first word of a message into a Message, calling next for
// the follow-up word when the first word announces one.
//
// next may be nil when the caller knows the stream has ended; decoding an
// address announcement then fails with ErrTruncated.
func Decode(first Word, next func() (Word, error)) (Message, error) {
	switch first.High() {
	case TagAddressAnnounce:
		if next == nil {
			return nil, ErrTruncated
		}
		w, err := next()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], uint32(w))
		return AddressAnnounce{Addr: netip.AddrFrom4(octets)}, nil

	case TagPublishAck:
		return PublishAck{Status: first.Low()}, nil

	default:
		return Status{Attempt: first.High(), Code: StatusCode(first.Low())}, nil
	}
}

// DecodeAll decodes a complete word sequence, as captured from the handoff.
func DecodeAll(words []Word) ([]Message, error) {
	var msgs []Message
	i := 0
	next := func() (Word, error) {
		if i >= len(words) {
			return 0, ErrTruncated
		}
		w := words[i]
		i++
		return w, nil
	}

	for i < len(words) {
		first := words[i]
		i++
		msg, err := Decode(first, next)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
