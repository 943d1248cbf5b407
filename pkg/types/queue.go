package types

import (
	"sync"
)

// FIFO with unlimited capacity
// not thread safe
type queue[T any] struct {
	data []T
}

func (q *queue[T]) len() int {
	return len(q.data)
}

func (q *queue[T]) push(v T) {
	q.data = append(q.data, v)
}

// panics if empty
func (q *queue[T]) pop() T {
	var zero T
	v := q.data[0]
	q.data[0] = zero
	q.data = q.data[1:]
	return v
}

// keep only the values for which keep returns true, preserving order
func (q *queue[T]) filter(keep func(T) bool) int {
	var zero T
	kept := q.data[:0]
	for _, v := range q.data {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	dropped := len(q.data) - len(kept)
	for i := len(kept); i < len(q.data); i++ {
		q.data[i] = zero
	}
	q.data = kept
	return dropped
}

// ControlledQueue is an unbounded FIFO shared by M senders and N receivers.
// Send never blocks, so a producer on a latency sensitive thread can hand off
// work or events without waiting on the consumer.
type ControlledQueue[T any] struct {
	data   queue[T]
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func NewControlledQueue[T any]() *ControlledQueue[T] {
	cq := &ControlledQueue[T]{}
	cq.cond = sync.NewCond(&cq.mu)
	return cq
}

// Close wakes every blocked receiver. Values still queued are discarded.
// Safe to call more than once.
func (cq *ControlledQueue[T]) Close() {
	cq.mu.Lock()
	cq.closed = true
	cq.data.data = nil
	cq.mu.Unlock()
	cq.cond.Broadcast()
}

// return true on Send
// return false if closed and not Send
func (cq *ControlledQueue[T]) Send(v T) bool {
	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return false
	}
	cq.data.push(v)
	cq.mu.Unlock()
	cq.cond.Signal()
	return true
}

// blocks on empty to wait to receive
func (cq *ControlledQueue[T]) Recv() (T, bool) {
	_, v, ok := cq.AttemptRecv(true)
	return v, ok
}

// return (false, zero, true) on empty
// return (true, v, true) on recv
// return (true, zero, false) on closed
// can opt out of blocking on empty
func (cq *ControlledQueue[T]) AttemptRecv(blockOnEmpty bool) (canRecv bool, v T, ok bool) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	for {
		if cq.closed {
			return true, v, false
		}
		if cq.data.len() > 0 {
			return true, cq.data.pop(), true
		}
		if !blockOnEmpty {
			return false, v, true
		}
		cq.cond.Wait()
	}
}

// Filter drops every queued value for which keep returns false and reports
// how many were dropped. Values already received are unaffected.
func (cq *ControlledQueue[T]) Filter(keep func(T) bool) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.data.filter(keep)
}

func (cq *ControlledQueue[T]) Len() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.data.len()
}
