// Package queue provides the bounded message FIFO of the link session.
//
// A Queue is not synchronized; the session serializes access with its own
// re-entrancy guard.
package queue

import "github.com/robotalks/multilink/pkg/hw"

// DefaultCapacity is the default maximum number of queued values.
const DefaultCapacity = 30

// Queue is a fixed capacity FIFO of 16-bit values. Pushing onto a full
// queue drops the oldest value.
type Queue struct {
	buf      []uint16
	head     int
	size     int
	overflow bool
}

// New creates a queue, capacity < 1 selects DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{buf: make([]uint16, capacity)}
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued values.
func (q *Queue) Len() int {
	return q.size
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return q.size == 0
}

// IsFull reports whether the next Push drops a value.
func (q *Queue) IsFull() bool {
	return q.size == len(q.buf)
}

// Push appends a value, dropping the oldest one when full.
func (q *Queue) Push(v uint16) {
	if q.IsFull() {
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.overflow = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
}

// Pop removes and returns the oldest value, hw.NoData if empty.
func (q *Queue) Pop() uint16 {
	if q.size == 0 {
		return hw.NoData
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v
}

// Peek returns the oldest value without removing it, hw.NoData if empty.
func (q *Queue) Peek() uint16 {
	if q.size == 0 {
		return hw.NoData
	}
	return q.buf[q.head]
}

// Clear drops all values. The overflow flag is kept.
func (q *Queue) Clear() {
	q.head, q.size = 0, 0
}

// Overflowed reports whether a value was dropped since the last call with
// clear set.
func (q *Queue) Overflowed(clear bool) bool {
	v := q.overflow
	if clear {
		q.overflow = false
	}
	return v
}
