package queue

import "sync/atomic"

const (
	slotPending int32 = iota
	slotReady
	slotDropped
)

// Slot receives the handle of a spawned entity. It is empty until a drain
// fulfils the request and is written at most once.
type Slot struct {
	state  atomic.Int32
	handle atomic.Uint64
}

// Get returns the handle, or false while the entity does not exist yet.
func (s *Slot) Get() (uint64, bool) {
	if s.state.Load() != slotReady {
		return 0, false
	}
	return s.handle.Load(), true
}

func (s *Slot) Ready() bool {
	return s.state.Load() == slotReady
}

// Dropped reports a request that will never be fulfilled.
func (s *Slot) Dropped() bool {
	return s.state.Load() == slotDropped
}

func (s *Slot) fill(handle uint64) bool {
	s.handle.Store(handle)
	return s.state.CompareAndSwap(slotPending, slotReady)
}

func (s *Slot) drop() {
	s.state.CompareAndSwap(slotPending, slotDropped)
}

type Request struct {
	Kind string
	Slot *Slot
}

// Spawns queues requests to create entities of a named kind.
type Spawns struct {
	q Queue[Request]
}

func (s *Spawns) Submit(kind string) *Slot {
	slot := new(Slot)
	s.q.Push(Request{Kind: kind, Slot: slot})
	return slot
}

func (s *Spawns) Len() int {
	return s.q.Len()
}

// Drain creates one entity per pending request whose slot is still empty.
// A zero handle from spawn, or a panic inside it, drops the request.
func (s *Spawns) Drain(spawn func(kind string) uint64) int {
	n := 0
	s.q.Drain(func(req Request) bool {
		if req.Slot.state.Load() != slotPending {
			return true
		}
		defer req.Slot.drop()
		if h := spawn(req.Kind); h != 0 {
			req.Slot.fill(h)
			n++
		}
		return true
	})
	return n
}

// Clear drops every pending request; their slots stay empty.
func (s *Spawns) Clear() int {
	dropped := s.q.Clear()
	for _, req := range dropped {
		req.Slot.drop()
	}
	return len(dropped)
}
