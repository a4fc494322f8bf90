// Package native exposes the current address space as a process.Process.
package native

import (
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/wnxd/microhook/process"
)

type Process struct {
	arch     process.Arch
	pageSize uint64

	mu     sync.Mutex
	allocs map[uint64][]byte
}

var _ process.Process = (*Process)(nil)

func New() *Process {
	return &Process{
		arch:     hostArch(),
		pageSize: uint64(os.Getpagesize()),
		allocs:   make(map[uint64][]byte),
	}
}

func hostArch() process.Arch {
	switch runtime.GOARCH {
	case "386":
		return process.ARCH_X86
	case "amd64":
		return process.ARCH_X86_64
	}
	return process.ARCH_UNKNOWN
}

func (p *Process) Arch() process.Arch {
	return p.arch
}

func (p *Process) PageSize() uint64 {
	return p.pageSize
}

func (p *Process) MemRead(addr, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := p.MemReadInto(buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *Process) MemReadInto(b []byte, addr uint64) error {
	if err := p.check(addr, uint64(len(b)), process.MEM_PROT_READ); err != nil {
		return err
	}
	copy(b, view(addr, len(b)))
	return nil
}

func (p *Process) MemWrite(addr uint64, data []byte) error {
	if err := p.check(addr, uint64(len(data)), process.MEM_PROT_WRITE); err != nil {
		return err
	}
	copy(view(addr, len(data)), data)
	return nil
}

// check fails unless every byte of [addr, addr+size) is mapped with need.
func (p *Process) check(addr, size uint64, need process.MemProt) error {
	if size == 0 {
		return nil
	}
	regions, err := p.MemRegions()
	if err != nil {
		return err
	}
	end := addr + size
	for _, r := range regions {
		if end <= r.Addr || addr >= r.End() {
			continue
		}
		if addr < r.Addr {
			return process.ErrAddressInvalid
		}
		if r.Prot&need != need {
			return process.ErrProtection
		}
		if end <= r.End() {
			return nil
		}
		addr = r.End()
	}
	return process.ErrAddressInvalid
}

func view(addr uint64, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}

func uintptrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

type module struct {
	name    string
	base    uint64
	size    uint64
	exports func(name string) (uint64, error)
}

func (m *module) Name() string {
	return m.name
}

func (m *module) Region() (uint64, uint64) {
	return m.base, m.size
}

func (m *module) BaseAddr() uint64 {
	return m.base
}

func (m *module) FindExport(name string) (uint64, error) {
	if m.exports == nil {
		return 0, process.ErrExportNotFound
	}
	return m.exports(name)
}
