// Package event provides double-buffered event queues. Events sent during
// tick N become readable in tick N+1, after Swap.
package event

// Queue holds events of one type. Store it as a world resource: senders
// need write access, readers only read access to Events.
type Queue[T any] struct {
	front []T
	back  []T
	sent  uint64
}

// Send queues ev into the back buffer.
func (q *Queue[T]) Send(ev T) {
	q.back = append(q.back, ev)
	q.sent++
}

// Events returns the events published by the last Swap. The slice is owned
// by the queue and reused two swaps later.
func (q Queue[T]) Events() []T { return q.front }

// Len counts readable events.
func (q Queue[T]) Len() int { return len(q.front) }

// Pending counts events sent since the last Swap.
func (q Queue[T]) Pending() int { return len(q.back) }

// Sent counts every event ever sent.
func (q Queue[T]) Sent() uint64 { return q.sent }

// Swap publishes the back buffer and clears the new back buffer. Events
// nobody read before the swap are dropped.
func (q *Queue[T]) Swap() {
	q.front, q.back = q.back, q.front
	clear(q.back)
	q.back = q.back[:0]
}
