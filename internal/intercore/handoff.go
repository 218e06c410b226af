package intercore

import (
	"context"
	"net/netip"
	"sync"
)

// DefaultHandoffDepth is the number of words the handoff holds before a
// producer blocks.
const DefaultHandoffDepth = 1

// Handoff is a blocking, strictly ordered word FIFO between two goroutines.
//
// A producer blocks while the FIFO is full; a consumer either blocks in
// Receive or polls with TryReceive. Words are delivered exactly once and in
// order.
//
// Thread Safety:
//   - Any number of producers may send concurrently. Multi-word messages are
//     sent under a lock so another producer cannot interleave with them.
//   - A single consumer is assumed.
type Handoff struct {
	slot chan Word

	// sendMu keeps the words of one message contiguous.
	sendMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewHandoff creates a handoff holding up to depth words.
// A depth below 1 uses DefaultHandoffDepth.
func NewHandoff(depth int) *Handoff {
	if depth < 1 {
		depth = DefaultHandoffDepth
	}
	return &Handoff{
		slot: make(chan Word, depth),
		done: make(chan struct{}),
	}
}

// send pushes one word, blocking until there is room.
func (h *Handoff) send(ctx context.Context, w Word) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrClosed
	case h.slot <- w:
		return nil
	}
}

// SendMessage encodes msg and pushes its words back to back.
func (h *Handoff) SendMessage(ctx context.Context, msg Message) error {
	return h.SendMessages(ctx, msg)
}

// SendMessages pushes several messages with no other producer's words in
// between them.
func (h *Handoff) SendMessages(ctx context.Context, msgs ...Message) error {
	var words []Word
	for _, msg := range msgs {
		w, err := Encode(msg)
		if err != nil {
			return err
		}
		words = append(words, w...)
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	for _, w := range words {
		if err := h.send(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// TrySendMessage pushes msg only if every word fits without blocking.
//
// It returns false when the FIFO is full or another producer is mid-message.
// Callers running on the consumer's own goroutine must use this instead of
// SendMessage, since blocking there would wait on themselves.
func (h *Handoff) TrySendMessage(msg Message) (bool, error) {
	words, err := Encode(msg)
	if err != nil {
		return false, err
	}

	select {
	case <-h.done:
		return false, ErrClosed
	default:
	}

	if !h.sendMu.TryLock() {
		return false, nil
	}
	defer h.sendMu.Unlock()

	if cap(h.slot)-len(h.slot) < len(words) {
		return false, nil
	}
	for _, w := range words {
		h.slot <- w
	}
	return true, nil
}

// SendStatus reports a link status transition.
func (h *Handoff) SendStatus(ctx context.Context, code StatusCode, attempt uint16) error {
	return h.SendMessage(ctx, Status{Attempt: attempt, Code: code})
}

// SendAddress announces a network address as a two-word message.
func (h *Handoff) SendAddress(ctx context.Context, addr netip.Addr) error {
	return h.SendMessage(ctx, AddressAnnounce{Addr: addr})
}

// SendLinkUp reports an Up status on attempt and announces addr right
// after it.
func (h *Handoff) SendLinkUp(ctx context.Context, attempt uint16, addr netip.Addr) error {
	return h.SendMessages(ctx,
		Status{Attempt: attempt, Code: StatusUp},
		AddressAnnounce{Addr: addr},
	)
}

// SendPublishAck reports the outcome of a publish request.
func (h *Handoff) SendPublishAck(ctx context.Context, status uint16) error {
	return h.SendMessage(ctx, PublishAck{Status: status})
}

// TrySendPublishAck is the non-blocking form of SendPublishAck.
func (h *Handoff) TrySendPublishAck(status uint16) (bool, error) {
	return h.TrySendMessage(PublishAck{Status: status})
}

// Receive blocks until a word is available.
func (h *Handoff) Receive(ctx context.Context) (Word, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case w := <-h.slot:
		return w, nil
	case <-h.done:
		// Drain words sent before Close.
		select {
		case w := <-h.slot:
			return w, nil
		default:
			return 0, ErrClosed
		}
	}
}

// TryReceive pops a word if one is waiting.
func (h *Handoff) TryReceive() (Word, bool) {
	select {
	case w := <-h.slot:
		return w, true
	default:
		return 0, false
	}
}

// NextWord returns a follow-up reader for Decode bound to ctx.
func (h *Handoff) NextWord(ctx context.Context) func() (Word, error) {
	return func() (Word, error) {
		return h.Receive(ctx)
	}
}

// Pending returns the number of words waiting in the FIFO.
func (h *Handoff) Pending() int {
	return len(h.slot)
}

// Close unblocks all producers and consumers. Words already in the FIFO can
// still be received. Safe to call multiple times.
func (h *Handoff) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
