package sim_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/process"
	"github.com/wnxd/microhook/sim"
)

var hotpatch = []byte{0x8B, 0xFF, 0x55, 0x8B, 0xEC}

func withGame(t *testing.T, arch process.Arch, opts ...sim.Option) *sim.Process {
	t.Helper()
	p := newProcess(t, arch, opts...)
	_, err := p.Load(&loader.Image{
		Name:    "game.exe",
		Base:    0x400000,
		Regions: []loader.Region{loader.Code(0x1000, make([]byte, 0x1000))},
	})
	require.NoError(t, err)
	return p
}

func jmp(from, to uint64) []byte {
	code := []byte{0xE9, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(code[1:], uint32(to-(from+5)))
	return code
}

func sum(args ...uint64) uint64 {
	var s uint64
	for _, a := range args {
		s += a
	}
	return s
}

func TestCallNative(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	require.NoError(t, p.Define(0x401000, hotpatch, sum))
	ret, err := p.Call(0x401000, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), ret)
}

func TestCallFollowsJumps(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	require.NoError(t, p.Define(0x401800, hotpatch, sum))
	slot, err := p.Alloc([]byte{0x00, 0x18, 0x40, 0x00})
	require.NoError(t, err)
	indirect := append([]byte{0xFF, 0x25}, binary.LittleEndian.AppendUint32(nil, uint32(slot))...)

	require.NoError(t, p.Poke(0x401000, jmp(0x401000, 0x401100)))
	require.NoError(t, p.Poke(0x401100, []byte{0xEB, 0x7E}))
	require.NoError(t, p.Poke(0x401180, indirect))

	ret, err := p.Call(0x401000, 20, 22)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ret)
}

func TestCallRipRelative(t *testing.T) {
	p := withGame(t, process.ARCH_X86_64)
	require.NoError(t, p.Define(0x401800, hotpatch, sum))
	code := []byte{0xFF, 0x25, 0, 0, 0, 0}
	code = binary.LittleEndian.AppendUint64(code, 0x401800)
	require.NoError(t, p.Poke(0x401000, code))

	ret, err := p.Call(0x401000, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), ret)
}

func TestCallGate(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	entry, err := p.Bind(func(args ...uint64) uint64 { return args[0] * 2 })
	require.NoError(t, err)
	code, err := p.MemRead(entry.Addr(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCC}, code)

	require.NoError(t, p.Poke(0x401000, jmp(0x401000, entry.Addr())))
	ret, err := p.Call(0x401000, 21)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ret)

	require.NoError(t, entry.Close())
	require.NoError(t, entry.Close())
	_, err = p.Call(entry.Addr(), 21)
	var f *process.Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "no host code", f.Reason)

	_, err = p.Bind(nil)
	assert.ErrorIs(t, err, process.ErrArgumentInvalid)
}

func TestCallResume(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	require.NoError(t, p.Define(0x401000, hotpatch, sum))
	region, err := p.MemAlloc(0x10, process.MEM_PROT_ALL)
	require.NoError(t, err)
	tramp := append(append([]byte{}, hotpatch...), jmp(region.Addr+5, 0x401005)...)
	require.NoError(t, p.Poke(region.Addr, tramp))
	ret, err := p.Call(region.Addr, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), ret)

	// the copy must be as long as the distance it skips
	require.NoError(t, p.Poke(region.Addr, append([]byte{0x90}, jmp(region.Addr+1, 0x401002)...)))
	_, err = p.Call(region.Addr)
	assert.Error(t, err)
}

func TestCallFaults(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	var f *process.Fault

	_, err := p.Call(0x900000)
	require.ErrorAs(t, err, &f)
	assert.ErrorIs(t, err, process.ErrAddressInvalid)

	_, err = p.Call(0x401000)
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "game.exe", f.Module)
	assert.Equal(t, uint64(0x1000), f.Offset)
	assert.Equal(t, "[Fault] module: game.exe, offset: 00001000, no host code", f.Error())

	data, err := p.Alloc(hotpatch)
	require.NoError(t, err)
	_, err = p.Call(data)
	assert.ErrorIs(t, err, process.ErrProtection)

	require.NoError(t, p.Poke(0x401000, jmp(0x401000, 0x401000)))
	_, err = p.Call(0x401000)
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "jump chain too long", f.Reason)
}

func TestCallUnwindsFaultFromGo(t *testing.T) {
	p := withGame(t, process.ARCH_X86)
	boom := errors.New("boom")
	require.NoError(t, p.Define(0x401000, hotpatch, func(args ...uint64) uint64 {
		panic(process.NewFault(p, 0x401000, "host", boom))
	}))
	_, err := p.Call(0x401000)
	assert.ErrorIs(t, err, boom)

	require.NoError(t, p.Define(0x401100, hotpatch, func(args ...uint64) uint64 {
		panic("not a fault")
	}))
	assert.PanicsWithValue(t, "not a fault", func() { p.Call(0x401100) })
}
