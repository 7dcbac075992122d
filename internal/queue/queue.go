// Package queue implements the bounded connection queue of spec.md §3: a
// FIFO of accepted sockets between the accept loop and the worker pool.
package queue

import "net"

// Item is one accepted connection waiting to be handled.
type Item struct {
	Conn net.Conn
	Peer string
}

// Queue is a bounded FIFO of Items. Its capacity is fixed at creation
// (NumWorkers * Backlog, per spec.md §3); Put blocks when full and Get
// blocks when empty, giving the accept loop natural backpressure without
// any locks beyond the channel itself.
type Queue struct {
	items chan Item
}

// New returns a Queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{items: make(chan Item, capacity)}
}

// Cap returns the queue's capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// Put enqueues item, blocking if the queue is at capacity. This is the
// admission-control backpressure point in the accept loop (spec.md §4.7).
func (q *Queue) Put(item Item) {
	q.items <- item
}

// Get dequeues the next item, blocking until one is available or the
// queue is closed, in which case ok is false.
func (q *Queue) Get() (item Item, ok bool) {
	item, ok = <-q.items
	return item, ok
}

// Chan exposes the underlying channel for select-based consumers (workers
// need to observe a stop signal while waiting on the queue).
func (q *Queue) Chan() <-chan Item {
	return q.items
}

// Close closes the queue. No further Puts may occur after Close.
func (q *Queue) Close() {
	close(q.items)
}
