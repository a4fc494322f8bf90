package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/event"
)

func TestRegistryOrder(t *testing.T) {
	var r event.Registry[event.TickFunc]
	var got []string
	r.Register(func(delta float32) { got = append(got, "T1") })
	r.Register(func(delta float32) { got = append(got, "T2") })
	require.Equal(t, 2, r.Len())
	r.Each(func(cb event.TickFunc) { cb(0.016) })
	assert.Equal(t, []string{"T1", "T2"}, got)
}

func TestRegistryRegisterDuringDispatch(t *testing.T) {
	var r event.Registry[event.LifecycleFunc]
	calls := 0
	r.Register(func() {
		calls++
		r.Register(func() { calls += 10 })
	})
	r.Each(func(cb event.LifecycleFunc) { cb() })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryEmpty(t *testing.T) {
	var r event.Registry[event.ActorFunc]
	assert.Zero(t, r.Len())
	assert.Nil(t, r.Snapshot())
	r.Each(func(event.ActorFunc) { t.Fatal("unexpected callback") })
}

func TestRegistryConcurrentRegister(t *testing.T) {
	var r event.Registry[func()]
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(func() {})
			r.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, r.Len())
}

func TestRegistryEachAllocFree(t *testing.T) {
	var r event.Registry[event.TickFunc]
	sum := float32(0)
	r.Register(func(delta float32) { sum += delta })
	allocs := testing.AllocsPerRun(100, func() {
		for _, cb := range r.Snapshot() {
			cb(1)
		}
	})
	assert.Zero(t, allocs)
	assert.Positive(t, sum)
}

func TestResultOr(t *testing.T) {
	assert.Equal(t, event.NotHandled, event.NotHandled.Or(event.NotHandled))
	assert.Equal(t, event.Handled, event.NotHandled.Or(event.Handled))
	assert.Equal(t, event.Handled, event.Handled.Or(event.NotHandled))
	assert.Equal(t, event.Handled, event.Handled.Or(event.Handled))
}

func TestDispatchRunsEveryCallback(t *testing.T) {
	var r event.Registry[event.ObjectCallFunc]
	var order []int
	r.Register(func(event.ObjectCall) event.Result { order = append(order, 1); return event.NotHandled })
	r.Register(func(event.ObjectCall) event.Result { order = append(order, 2); return event.Handled })
	r.Register(func(event.ObjectCall) event.Result { order = append(order, 3); return event.NotHandled })
	assert.Equal(t, event.Handled, event.Dispatch(&r, event.ObjectCall{}))
	assert.Equal(t, []int{1, 2, 3}, order)

	var empty event.Registry[event.ObjectCallFunc]
	assert.Equal(t, event.NotHandled, event.Dispatch(&empty, event.ObjectCall{}))
}
