// Package intercore implements the channel between the connection manager
// and the orchestrator.
//
// The channel has two layers:
//   - Handoff: a blocking, strictly ordered word FIFO. A producer blocks while
//     the slot is full; the consumer blocks (or polls) until a word arrives.
//   - Queue: a fixed-capacity ring buffer guarded by a single mutex, used by
//     the consumer to absorb bursts of status traffic without blocking the
//     producer's reporting cadence.
//
// # Wire format
//
// Every handoff word is 32 bits. The upper 16 bits carry either a retry
// attempt counter or a reserved tag, the lower 16 bits carry a status code or
// payload:
//
//	0xFFFE_xxxx  next word is an IPv4 address (network byte order)
//	0x9999_ssss  publish acknowledgment, ssss = 0 on success
//	aaaa_ssss    link status ssss reported on attempt aaaa
//
// Attempt counters never exceed MaxAttempt, so they cannot collide with a
// reserved tag. Words are decoded into a Message (Status, AddressAnnounce or
// PublishAck) as soon as they are received; nothing downstream of Decode
// looks at raw tag values.
//
// # Usage
//
//	h := intercore.NewHandoff(1)
//	go func() {
//	    h.SendStatus(ctx, intercore.StatusUp, 3)
//	    h.SendAddress(ctx, netip.MustParseAddr("10.0.0.5"))
//	}()
//
//	w, _ := h.Receive(ctx)
//	msg, err := intercore.Decode(w, h.NextWord(ctx))
package intercore
