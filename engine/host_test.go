package engine_test

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/engine"
	"github.com/wnxd/microhook/layout"
	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/process"
	"github.com/wnxd/microhook/scan"
	"github.com/wnxd/microhook/sim"
)

const (
	addrNames        = 0x401000
	addrObjects      = 0x401100
	addrProcessEvent = 0x401200
	addrLevelLoad    = 0x401300
	addrAnchor       = 0x401400
	addrPreDeath     = 0x401500
	addrPostDeath    = 0x401600
	addrActorTick    = 0x401700
	addrBonesSite    = 0x401800
	addrBones        = 0x401900
	addrProjection   = 0x401A00
	addrTick         = 0x401B00
	namesTable       = 0x410000
	objectsTable     = 0x410100
	deathFlag        = 0x410200
	bonesArray       = 0x410300

	addrDevice      = 0x10001000
	addrEndScene    = 0x10002000
	addrReset       = 0x10002100
	deviceVtable    = 0x10010000
	addrLoadLibrary = 0x20001000
	addrPeekMessage = 0x30001000

	hookCount = 12
)

var hotpatch = []byte{0x8B, 0xFF, 0x55, 0x8B, 0xEC}

// host is a 32 bit game process carrying every default signature.
type host struct {
	*sim.Process
	t  *testing.T
	mu sync.Mutex
	// calls logs every original host function reached, in order.
	calls []string

	onLevelLoad   func()
	onLoadLibrary func(name string)
	peek          engine.Msg
}

func (h *host) record(name string) {
	h.mu.Lock()
	h.calls = append(h.calls, name)
	h.mu.Unlock()
}

func (h *host) takeCalls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	calls := h.calls
	h.calls = nil
	return calls
}

func concrete(p scan.Pattern, patch map[int]byte) []byte {
	code := make([]byte, p.Len())
	for i := range code {
		code[i], _ = p.At(i)
		if b, ok := patch[i]; ok {
			code[i] = b
		}
	}
	return code
}

func put32(code []byte, off int, v uint32) []byte {
	binary.LittleEndian.PutUint32(code[off:], v)
	return code
}

func newHost(t *testing.T) *host {
	t.Helper()
	h := &host{Process: sim.New(process.ARCH_X86), t: t}
	t.Cleanup(func() { h.Close() })
	sigs := engine.DefaultSignatures()

	image := func(name string, base uint64, exports map[string]uint64) {
		_, err := h.Load(&loader.Image{
			Name: name,
			Base: base,
			Regions: []loader.Region{
				loader.Code(0x1000, make([]byte, 0x2000)),
				loader.Data(0x10000, make([]byte, 0x1000)),
			},
			Exports: exports,
		})
		require.NoError(t, err)
	}
	image("game.exe", 0x400000, nil)
	image("d3d9.dll", 0x10000000, nil)
	image("kernel32.dll", 0x20000000, map[string]uint64{"LoadLibraryA": 0x1000})
	image("user32.dll", 0x30000000, map[string]uint64{"PeekMessageW": 0x1000})

	poke := func(addr uint64, code []byte) {
		require.NoError(t, h.Poke(addr, code))
	}
	define := func(addr uint64, code []byte, fn process.Func) {
		require.NoError(t, h.Define(addr, code, fn))
	}
	named := func(name string, ret uint64) process.Func {
		return func(args ...uint64) uint64 {
			h.record(name)
			return ret
		}
	}

	poke(addrNames, put32(concrete(sigs.Names, nil), 2, namesTable))
	poke(addrObjects, put32(concrete(sigs.Objects, nil), 2, objectsTable))
	poke(addrAnchor, concrete(sigs.PreDeathAnchor, nil))

	define(addrProcessEvent, concrete(sigs.ProcessEvent, nil), named("process-event", 0x77))
	define(addrLevelLoad, concrete(sigs.LevelLoad, map[int]byte{0: 0x6A, 1: 0xFF, 2: 0x68}),
		func(args ...uint64) uint64 {
			h.record("level-load")
			if h.onLevelLoad != nil {
				h.onLevelLoad()
			}
			return 1
		})
	define(addrPreDeath, put32(concrete(sigs.PreDeath, nil), 2, deathFlag), named("pre-death", 1))
	define(addrPostDeath, put32(concrete(sigs.PostDeath, map[int]byte{0: 0x8B, 1: 0x0D}), 2, deathFlag),
		named("post-death", 1))
	define(addrActorTick, concrete(sigs.ActorTick, nil), named("actor-tick", 0))
	poke(addrBonesSite, put32(concrete(sigs.BonesTick, nil), 1, uint32(addrBones-(addrBonesSite+5))))
	define(addrBones, hotpatch, named("bones-tick", bonesArray))
	define(addrProjection, concrete(sigs.Projection, nil), named("projection", 0))
	define(addrTick, concrete(sigs.Tick, nil), named("tick", 0))

	poke(addrDevice, put32(concrete(sigs.Device, nil), 2, deviceVtable))
	vtable := make([]byte, 4*(sigs.EndSceneIndex+1))
	put32(vtable, 4*sigs.EndSceneIndex, addrEndScene)
	put32(vtable, 4*sigs.ResetIndex, addrReset)
	poke(deviceVtable, vtable)
	define(addrEndScene, hotpatch, named("end-scene", 0))
	define(addrReset, hotpatch, named("reset", 0))

	define(addrLoadLibrary, hotpatch, func(args ...uint64) uint64 {
		name, _ := process.ToPointer(h, process.Arg(args, 0)).ReadCString()
		h.record("load-library")
		if h.onLoadLibrary != nil {
			h.onLoadLibrary(name)
		}
		return 0x5000
	})
	define(addrPeekMessage, hotpatch, func(args ...uint64) uint64 {
		h.record("peek-message")
		require.NoError(t, layout.Write(h, process.Arg(args, 0), &h.peek))
		return 1
	})
	return h
}

func (h *host) call(addr uint64, args ...uint64) uint64 {
	h.t.Helper()
	ret, err := h.Call(addr, args...)
	require.NoError(h.t, err)
	return ret
}

func (h *host) alloc(data []byte) uint64 {
	h.t.Helper()
	addr, err := h.Alloc(data)
	require.NoError(h.t, err)
	return addr
}

func (h *host) cstring(s string) uint64 {
	return h.alloc(append([]byte(s), 0))
}

// levelInfo builds a level info block naming the destination.
func (h *host) levelInfo(name string) uint64 {
	h.t.Helper()
	text, err := process.EncodeUTF16(name)
	require.NoError(h.t, err)
	info := make([]byte, 4*8)
	put32(info, 4*7, uint32(h.alloc(text)))
	return h.alloc(info)
}

func (h *host) read(addr, size uint64) []byte {
	h.t.Helper()
	data, err := h.MemRead(addr, size)
	require.NoError(h.t, err)
	return data
}

type fakeObjects struct {
	proc       process.Memory
	mu         sync.Mutex
	world      uint64
	controller uint64
	local      uint64
	console    bool
	crash      string
	execs      []string
	spawns     []string
	resolves   int
}

func (o *fakeObjects) ResolveWorld() process.Pointer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolves++
	return process.ToPointer(o.proc, o.world)
}

func (o *fakeObjects) ResolveController(world process.Pointer) process.Pointer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return process.ToPointer(o.proc, o.controller)
}

func (o *fakeObjects) ResolveLocalEntity(controller process.Pointer) process.Pointer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return process.ToPointer(o.proc, o.local)
}

func (o *fakeObjects) Exec(command string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.console {
		return false
	}
	if command == o.crash {
		panic(process.NewFault(nil, 0xDEAD, "console", nil))
	}
	o.execs = append(o.execs, command)
	return true
}

func (o *fakeObjects) Spawn(kind string) process.Pointer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawns = append(o.spawns, kind)
	return process.ToPointer(o.proc, 0x600000+uint64(len(o.spawns)))
}

func (o *fakeObjects) set(fn func(o *fakeObjects)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o)
}
