// Package queue holds work submitted from any goroutine until the one
// context allowed to run it drains it.
package queue

import "sync"

// Queue is a multi-producer, single-consumer FIFO. The lock is only held
// to append or to swap the pending slice out.
type Queue[T any] struct {
	mu      sync.Mutex
	pending []T
	spare   []T
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.pending = append(q.pending, item)
	q.mu.Unlock()
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs fn for every item pending at the time of the call, in order.
// When fn returns false the item and everything after it go back to the
// head of the queue. When fn panics only that item is consumed. Items
// pushed while fn runs wait for the next Drain.
func (q *Queue[T]) Drain(fn func(item T) bool) int {
	q.mu.Lock()
	batch := q.pending
	q.pending, q.spare = q.spare[:0], nil
	q.mu.Unlock()

	i, returned := 0, false
	defer func() {
		if !returned {
			i++
		}
		q.restore(batch, i)
	}()
	for ; i < len(batch) && fn(batch[i]); i++ {
	}
	returned = true
	return i
}

func (q *Queue[T]) restore(batch []T, done int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rest := batch[done:]; len(rest) != 0 {
		q.pending = append(rest[:len(rest):len(rest)], q.pending...)
	} else if q.spare == nil {
		clear(batch)
		q.spare = batch[:0]
	}
}

// Clear drops every pending item and returns them.
func (q *Queue[T]) Clear() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.pending
	q.pending = nil
	return dropped
}
