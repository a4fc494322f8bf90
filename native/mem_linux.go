package native

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/wnxd/microhook/process"
)

type mapping struct {
	process.MemRegion
	path string
}

// maps parses /proc/self/maps.
func maps() ([]mapping, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []mapping
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		lo, hi, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		begin, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("maps %q: %w", fields[0], err)
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("maps %q: %w", fields[0], err)
		}
		m := mapping{MemRegion: process.MemRegion{Addr: begin, Size: end - begin}}
		perms := fields[1]
		if strings.HasPrefix(perms, "r") {
			m.Prot |= process.MEM_PROT_READ
		}
		if len(perms) > 1 && perms[1] == 'w' {
			m.Prot |= process.MEM_PROT_WRITE
		}
		if len(perms) > 2 && perms[2] == 'x' {
			m.Prot |= process.MEM_PROT_EXEC
		}
		if len(fields) > 5 {
			m.path = fields[5]
		}
		out = append(out, m)
	}
	return out, sc.Err()
}

func (p *Process) MemRegions() ([]process.MemRegion, error) {
	ms, err := maps()
	if err != nil {
		return nil, err
	}
	regions := make([]process.MemRegion, len(ms))
	for i, m := range ms {
		regions[i] = m.MemRegion
	}
	return regions, nil
}

func unixProt(prot process.MemProt) int {
	var out int
	if prot&process.MEM_PROT_READ != 0 {
		out |= unix.PROT_READ
	}
	if prot&process.MEM_PROT_WRITE != 0 {
		out |= unix.PROT_WRITE
	}
	if prot&process.MEM_PROT_EXEC != 0 {
		out |= unix.PROT_EXEC
	}
	return out
}

func (p *Process) MemProtect(addr, size uint64, prot process.MemProt) error {
	begin := process.AlignDown(addr, p.pageSize)
	end := process.Align(addr+size, p.pageSize)
	if err := unix.Mprotect(view(begin, int(end-begin)), unixProt(prot)); err != nil {
		return fmt.Errorf("mprotect %#x+%#x: %w", begin, end-begin, err)
	}
	return nil
}

func (p *Process) MemAlloc(size uint64, prot process.MemProt) (process.MemRegion, error) {
	size = process.Align(max(size, 1), p.pageSize)
	b, err := unix.Mmap(-1, 0, int(size), unixProt(prot), unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return process.MemRegion{}, fmt.Errorf("mmap %#x: %w", size, err)
	}
	addr := uint64(uintptrOf(b))
	p.mu.Lock()
	p.allocs[addr] = b
	p.mu.Unlock()
	return process.MemRegion{Addr: addr, Size: size, Prot: prot}, nil
}

func (p *Process) MemFree(addr, size uint64) error {
	p.mu.Lock()
	b, ok := p.allocs[addr]
	delete(p.allocs, addr)
	p.mu.Unlock()
	if !ok {
		return process.ErrAddressInvalid
	}
	return unix.Munmap(b)
}

// modules are the file backed mappings of the process, one per path.
// Export tables are not parsed.
func (p *Process) modules() ([]*module, error) {
	ms, err := maps()
	if err != nil {
		return nil, err
	}
	var out []*module
	byPath := make(map[string]*module)
	for _, m := range ms {
		if !strings.HasPrefix(m.path, "/") {
			continue
		}
		if mod, ok := byPath[m.path]; ok {
			mod.size = max(mod.size, m.End()-mod.base)
			continue
		}
		mod := &module{name: filepath.Base(m.path), base: m.Addr, size: m.Size}
		byPath[m.path] = mod
		out = append(out, mod)
	}
	return out, nil
}

func (p *Process) MainModule() (process.Module, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return p.FindModule(filepath.Base(exe))
}

func (p *Process) FindModule(name string) (process.Module, error) {
	mods, err := p.modules()
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		if strings.EqualFold(m.name, name) {
			return m, nil
		}
	}
	return nil, process.ErrModuleNotFound
}

func (p *Process) FindModuleByAddr(addr uint64) (process.Module, error) {
	mods, err := p.modules()
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		if addr >= m.base && addr < m.base+m.size {
			return m, nil
		}
	}
	return nil, process.ErrModuleNotFound
}

func (p *Process) Call(addr uint64, args ...uint64) (uint64, error) {
	return 0, errors.ErrUnsupported
}

func (p *Process) Bind(fn process.Func) (process.Entry, error) {
	return nil, errors.ErrUnsupported
}
