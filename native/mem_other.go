//go:build !linux && !windows

package native

import (
	"errors"

	"github.com/wnxd/microhook/process"
)

func (p *Process) MemRegions() ([]process.MemRegion, error) {
	return nil, errors.ErrUnsupported
}

func (p *Process) MemProtect(addr, size uint64, prot process.MemProt) error {
	return errors.ErrUnsupported
}

func (p *Process) MemAlloc(size uint64, prot process.MemProt) (process.MemRegion, error) {
	return process.MemRegion{}, errors.ErrUnsupported
}

func (p *Process) MemFree(addr, size uint64) error {
	return errors.ErrUnsupported
}

func (p *Process) MainModule() (process.Module, error) {
	return nil, errors.ErrUnsupported
}

func (p *Process) FindModule(name string) (process.Module, error) {
	return nil, errors.ErrUnsupported
}

func (p *Process) FindModuleByAddr(addr uint64) (process.Module, error) {
	return nil, errors.ErrUnsupported
}

func (p *Process) Call(addr uint64, args ...uint64) (uint64, error) {
	return 0, errors.ErrUnsupported
}

func (p *Process) Bind(fn process.Func) (process.Entry, error) {
	return nil, errors.ErrUnsupported
}
