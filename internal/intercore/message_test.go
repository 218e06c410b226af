package intercore

import (
	"errors"
	"net/netip"
	"testing"
)

func TestEncode_Status(t *testing.T) {
	words, err := Encode(Status{Attempt: 3, Code: StatusUp})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(words) != 1 {
		t.Fatalf("len(words) = %d, want 1", len(words))
	}
	if words[0] != 0x0003_0001 {
		t.Errorf("word = %s, want 0x00030001", words[0])
	}
}

func TestEncode_PublishAck(t *testing.T) {
	words, err := Encode(PublishAck{Status: AckFailure})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if words[0] != 0x9999_0001 {
		t.Errorf("word = %s, want 0x99990001", words[0])
	}
}

func TestEncode_AddressNetworkByteOrder(t *testing.T) {
	words, err := Encode(AddressAnnounce{Addr: netip.MustParseAddr("10.0.0.5")})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("len(words) = %d, want 2", len(words))
	}
	if words[0] != 0xFFFE_0000 {
		t.Errorf("tag word = %s, want 0xFFFE0000", words[0])
	}
	if words[1] != 0x0A00_0005 {
		t.Errorf("address word = %s, want 0x0A000005", words[1])
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{
			name: "attempt above bound",
			msg:  Status{Attempt: MaxAttempt + 1, Code: StatusFailed},
			want: ErrAttemptOutOfRange,
		},
		{
			name: "attempt equal to ack tag",
			msg:  Status{Attempt: TagPublishAck},
			want: ErrAttemptOutOfRange,
		},
		{
			name: "ipv6 address",
			msg:  AddressAnnounce{Addr: netip.MustParseAddr("fe80::1")},
			want: ErrNotIPv4,
		},
		{
			name: "zero address",
			msg:  AddressAnnounce{},
			want: ErrNotIPv4,
		},
		{
			name: "nil message",
			msg:  nil,
			want: ErrUnknownMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.msg)
			if !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReservedTagsOutsideAttemptSpace(t *testing.T) {
	for _, tag := range []uint16{TagAddressAnnounce, TagPublishAck} {
		if tag <= MaxAttempt {
			t.Errorf("tag 0x%04X falls inside attempt space [0,0x%04X]", tag, MaxAttempt)
		}
	}

	// Every encodable attempt decodes back to a Status.
	for a := uint16(0); a <= MaxAttempt; a++ {
		words, err := Encode(Status{Attempt: a, Code: StatusFailed})
		if err != nil {
			t.Fatalf("Encode(attempt=%d) error = %v", a, err)
		}
		msg, err := Decode(words[0], nil)
		if err != nil {
			t.Fatalf("Decode(attempt=%d) error = %v", a, err)
		}
		if _, ok := msg.(Status); !ok {
			t.Fatalf("attempt %d decoded as %T", a, msg)
		}
	}
}

func TestDecode_Variants(t *testing.T) {
	addrWord := Word(0xC0A8_0102) // 192.168.1.2

	tests := []struct {
		name  string
		first Word
		next  []Word
		want  Message
	}{
		{
			name:  "status",
			first: 0x0002_0002,
			want:  Status{Attempt: 2, Code: StatusFailed},
		},
		{
			name:  "final failure",
			first: 0x0000_0002,
			want:  Status{Attempt: 0, Code: StatusFailed},
		},
		{
			name:  "ack success",
			first: 0x9999_0000,
			want:  PublishAck{Status: AckSuccess},
		},
		{
			name:  "address",
			first: 0xFFFE_0000,
			next:  []Word{addrWord},
			want:  AddressAnnounce{Addr: netip.MustParseAddr("192.168.1.2")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := 0
			next := func() (Word, error) {
				if i >= len(tt.next) {
					return 0, ErrTruncated
				}
				w := tt.next[i]
				i++
				return w, nil
			}

			got, err := Decode(tt.first, next)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
			if i != len(tt.next) {
				t.Errorf("consumed %d follow-up words, want %d", i, len(tt.next))
			}
		})
	}
}

func TestDecode_TruncatedAddress(t *testing.T) {
	if _, err := Decode(0xFFFE_0000, nil); !errors.Is(err, ErrTruncated) {
		t.Errorf("Decode(nil next) error = %v, want ErrTruncated", err)
	}

	_, err := DecodeAll([]Word{0x0001_0001, 0xFFFE_0000})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("DecodeAll() error = %v, want ErrTruncated", err)
	}
}

func TestDecodeAll_Sequence(t *testing.T) {
	want := []Message{
		Status{Attempt: 0, Code: StatusConnecting},
		Status{Attempt: 1, Code: StatusUp},
		AddressAnnounce{Addr: netip.MustParseAddr("10.0.0.5")},
		PublishAck{Status: AckSuccess},
	}

	var words []Word
	for _, m := range want {
		w, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%#v) error = %v", m, err)
		}
		words = append(words, w...)
	}

	got, err := DecodeAll(words)
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("msg[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestStatusCode_String(t *testing.T) {
	tests := []struct {
		code StatusCode
		want string
	}{
		{StatusDown, "down"},
		{StatusUp, "up"},
		{StatusFailed, "failed"},
		{StatusConnecting, "connecting"},
		{StatusCode(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("StatusCode(%d).String() = %q, want %q", uint16(tt.code), got, tt.want)
		}
	}
}
