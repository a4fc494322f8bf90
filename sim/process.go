// Package sim is an in-memory host process: paged memory with protections,
// modules mapped from loader images, host functions bound to real prologue
// bytes and an executor that follows the x86 jumps written over them.
package sim

import (
	"sync"

	"github.com/wnxd/microhook/process"
)

const (
	pageSize         = 0x1000
	defaultAllocBase = 0x70000000
	maxHops          = 64
)

type Option func(*Process)

// WithAllocBase moves the start of the bump allocator used by MemAlloc.
func WithAllocBase(addr uint64) Option {
	return func(p *Process) {
		p.allocAddr = addr
	}
}

type Process struct {
	arch process.Arch
	memoryManager
	moduleManager
	gate

	codeMu  sync.RWMutex
	natives map[uint64]native
}

type native struct {
	fn   process.Func
	size uint64
}

var _ process.Process = (*Process)(nil)

func New(arch process.Arch, opts ...Option) *Process {
	p := &Process{
		arch:    arch,
		natives: make(map[uint64]native),
	}
	p.memoryManager.ctor()
	p.gate.ctor()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Process) Arch() process.Arch {
	return p.arch
}

func (p *Process) PageSize() uint64 {
	return pageSize
}

// Define places code at addr, ignoring protection, and makes fn the
// behaviour of the host function whose body starts there.
func (p *Process) Define(addr uint64, code []byte, fn process.Func) error {
	if err := p.Poke(addr, code); err != nil {
		return err
	}
	p.codeMu.Lock()
	p.natives[addr] = native{fn: fn, size: uint64(len(code))}
	p.codeMu.Unlock()
	return nil
}

// Close releases every mapping.
func (p *Process) Close() error {
	p.gate.dtor()
	p.moduleManager.dtor()
	p.memoryManager.dtor()
	return nil
}

func (p *Process) native(addr uint64) (native, bool) {
	p.codeMu.RLock()
	n, ok := p.natives[addr]
	p.codeMu.RUnlock()
	return n, ok
}
