package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wnxd/microhook/input"
)

type seen struct {
	msg uint32
	key uint64
}

func TestKeysEdges(t *testing.T) {
	var k input.Keys
	var normal, privileged []seen
	k.OnInput(func(msg uint32, key uint64) { normal = append(normal, seen{msg, key}) })
	k.OnPrivilegedInput(func(msg uint32, key uint64) { privileged = append(privileged, seen{msg, key}) })

	k.Handle(input.WM_KEYDOWN, 0x41)
	k.Handle(input.WM_KEYDOWN, 0x41)
	assert.True(t, k.Down(0x41))
	k.Handle(input.WM_KEYUP, 0x41)
	k.Handle(input.WM_KEYUP, 0x41)
	assert.False(t, k.Down(0x41))

	want := []seen{{input.WM_KEYDOWN, 0x41}, {input.WM_KEYUP, 0x41}}
	assert.Equal(t, want, normal)
	assert.Equal(t, want, privileged)
}

func TestKeysBlocked(t *testing.T) {
	var k input.Keys
	normal, privileged := 0, 0
	k.OnInput(func(uint32, uint64) { normal++ })
	k.OnPrivilegedInput(func(uint32, uint64) { privileged++ })

	k.SetBlocked(true)
	assert.True(t, k.Blocked())
	k.Handle(input.WM_SYSKEYDOWN, 0x70)
	assert.False(t, k.Down(0x70))
	assert.Equal(t, 0, normal)
	assert.Equal(t, 1, privileged)

	k.SetBlocked(false)
	assert.True(t, k.Down(0x70))
	k.Handle(input.WM_SYSKEYUP, 0x70)
	assert.Equal(t, 1, normal)
	assert.Equal(t, 2, privileged)
}

func TestKeysIgnoresOthers(t *testing.T) {
	var k input.Keys
	calls := 0
	k.OnPrivilegedInput(func(uint32, uint64) { calls++ })
	k.Handle(input.WM_PAINT, 0x41)
	k.Handle(input.WM_KEYDOWN, 0x1FF)
	assert.Zero(t, calls)
	assert.False(t, k.Down(-1))
	assert.False(t, k.Down(input.KeyCount))
}

func TestPassthrough(t *testing.T) {
	for _, msg := range []uint32{input.WM_SYSCOMMAND, input.WM_ACTIVATEAPP, input.WM_PAINT} {
		assert.Equal(t, msg, input.Passthrough(msg))
	}
	for _, msg := range []uint32{input.WM_KEYDOWN, input.WM_KEYUP, 0x0200} {
		assert.Equal(t, input.WM_NULL, input.Passthrough(msg))
	}
}
