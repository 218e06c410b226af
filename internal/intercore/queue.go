package intercore

import "sync"

// DefaultQueueCapacity is the queue size used when none is configured.
const DefaultQueueCapacity = 16

// Queue is a fixed-capacity FIFO ring buffer of messages.
//
// Enqueue and Dequeue never block: a full queue rejects new messages rather
// than overwriting old ones, and an empty queue reports empty. Every access,
// including length checks, goes through the same mutex, and the lock is only
// held for index arithmetic.
type Queue struct {
	mu    sync.Mutex
	buf   []Message
	head  int
	tail  int
	count int
}

// NewQueue creates a queue holding up to capacity messages.
// A capacity below 1 uses DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{buf: make([]Message, capacity)}
}

// Enqueue appends msg. It returns false, leaving the queue unchanged, when
// the queue is full.
func (q *Queue) Enqueue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.buf) {
		return false
	}
	q.buf[q.tail] = msg
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	return true
}

// Dequeue removes and returns the oldest message. It returns false when the
// queue is empty.
func (q *Queue) Dequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}
	msg := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return msg, true
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Empty reports whether the queue holds no messages.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}
