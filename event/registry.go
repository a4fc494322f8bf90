// Package event keeps the ordered callback lists the host shims notify.
package event

import (
	"sync"
	"sync/atomic"
)

// Registry is an append-only callback list. Readers load an immutable
// snapshot, so dispatch takes no lock and allocates nothing; a callback
// registered during a dispatch is first seen by the next one.
type Registry[T any] struct {
	mu   sync.Mutex
	list atomic.Pointer[[]T]
}

func (r *Registry[T]) Register(cb T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next []T
	if cur := r.list.Load(); cur != nil {
		next = make([]T, len(*cur), len(*cur)+1)
		copy(next, *cur)
	}
	next = append(next, cb)
	r.list.Store(&next)
}

func (r *Registry[T]) Len() int {
	if cur := r.list.Load(); cur != nil {
		return len(*cur)
	}
	return 0
}

// Snapshot returns the callbacks in registration order. The slice must not
// be modified.
func (r *Registry[T]) Snapshot() []T {
	if cur := r.list.Load(); cur != nil {
		return *cur
	}
	return nil
}

func (r *Registry[T]) Each(fn func(cb T)) {
	for _, cb := range r.Snapshot() {
		fn(cb)
	}
}
