// Package scan locates code and data in a loaded image by byte signature.
package scan

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wnxd/microhook/process"
)

type spaceKind int

const (
	spaceDefault spaceKind = iota
	spaceWindow
	spaceModule
	spaceExport
)

// Space bounds a search.
type Space struct {
	kind   spaceKind
	base   uint64
	length uint64
	module string
	export string
}

// Default searches the main module of the process.
func Default() Space {
	return Space{kind: spaceDefault}
}

// Window searches [base, base+length).
func Window(base, length uint64) Space {
	return Space{kind: spaceWindow, base: base, length: length}
}

// InModule searches the whole named module.
func InModule(name string) Space {
	return Space{kind: spaceModule, module: name}
}

// AtExport resolves an export of module and searches length bytes from it.
func AtExport(module, export string, length uint64) Space {
	return Space{kind: spaceExport, module: module, export: export, length: length}
}

func (s Space) String() string {
	switch s.kind {
	case spaceWindow:
		return fmt.Sprintf("window %#x+%#x", s.base, s.length)
	case spaceModule:
		return "module " + s.module
	case spaceExport:
		return fmt.Sprintf("%s!%s+%#x", s.module, s.export, s.length)
	}
	return "main module"
}

// Bounds resolves s to an address range.
func (s Space) Bounds(mods process.Modules) (uint64, uint64, error) {
	switch s.kind {
	case spaceDefault:
		m, err := mods.MainModule()
		if err != nil {
			return 0, 0, err
		}
		base, size := m.Region()
		return base, base + size, nil
	case spaceModule:
		m, err := mods.FindModule(s.module)
		if err != nil {
			return 0, 0, fmt.Errorf("%s: %w", s.module, err)
		}
		base, size := m.Region()
		return base, base + size, nil
	case spaceExport:
		m, err := mods.FindModule(s.module)
		if err != nil {
			return 0, 0, fmt.Errorf("%s: %w", s.module, err)
		}
		addr, err := m.FindExport(s.export)
		if err != nil {
			return 0, 0, fmt.Errorf("%s!%s: %w", s.module, s.export, err)
		}
		return addr, addr + s.length, nil
	case spaceWindow:
		if s.length == 0 {
			return 0, 0, ErrSpaceInvalid
		}
		return s.base, s.base + s.length, nil
	}
	return 0, 0, ErrSpaceInvalid
}

// Find returns the lowest address in space where every literal byte of p
// matches memory. Only readable memory is searched.
func Find(mem process.Memory, mods process.Modules, p Pattern, space Space) (uint64, error) {
	if p.Len() == 0 {
		return 0, ErrPatternEmpty
	}
	lo, hi, err := space.Bounds(mods)
	if err != nil {
		return 0, err
	}
	runs, err := readable(mem, lo, hi)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		data, err := mem.MemRead(run[0], run[1]-run[0])
		if err != nil {
			return 0, err
		}
		if i := Match(data, p); i >= 0 {
			return run[0] + uint64(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrNotFound, p, space)
}

// Match returns the index of the first match of p in data, or -1.
func Match(data []byte, p Pattern) int {
	a := p.anchor()
	if a < 0 {
		return -1
	}
	lit := p.bytes[a]
	last := len(data) - p.Len()
	for i := 0; i <= last; {
		j := bytes.IndexByte(data[i+a:last+a+1], lit)
		if j < 0 {
			return -1
		}
		i += j
		if matchAt(data[i:], p) {
			return i
		}
		i++
	}
	return -1
}

// FindAll returns every match index of p in data, overlapping matches
// included.
func FindAll(data []byte, p Pattern) []int {
	var out []int
	for off := 0; off <= len(data)-p.Len(); {
		i := Match(data[off:], p)
		if i < 0 {
			break
		}
		out = append(out, off+i)
		off += i + 1
	}
	return out
}

func matchAt(data []byte, p Pattern) bool {
	for k, b := range p.bytes {
		if !p.wild[k] && data[k] != b {
			return false
		}
	}
	return true
}

// readable returns the maximal runs of contiguous readable memory in
// [lo, hi).
func readable(mem process.Memory, lo, hi uint64) ([][2]uint64, error) {
	regions, err := mem.MemRegions()
	if err != nil {
		return nil, err
	}
	var runs [][2]uint64
	for _, r := range regions {
		if r.Prot&process.MEM_PROT_READ == 0 {
			continue
		}
		begin, end, ok := calcOverlap(r.Addr, r.End(), lo, hi)
		if !ok || begin == end {
			continue
		}
		if n := len(runs) - 1; n >= 0 && runs[n][1] == begin {
			runs[n][1] = end
			continue
		}
		runs = append(runs, [2]uint64{begin, end})
	}
	return runs, nil
}

func calcOverlap(min1, max1, min2, max2 uint64) (uint64, uint64, bool) {
	if max1 < min2 || max2 < min1 {
		return 0, 0, false
	}
	overlapMin := max(min1, min2)
	overlapMax := min(max1, max2)
	return overlapMin, overlapMax, true
}

// Deref reads the host pointer stored at addr.
func Deref(mem process.Memory, addr uint64) (uint64, error) {
	ptr, err := process.ToPointer(mem, addr).ReadPointer()
	if err != nil {
		return 0, err
	}
	return ptr.Address(), nil
}

// CallTarget resolves the destination of a rel32 branch instruction of
// length bytes at addr, such as E8 or E9.
func CallTarget(mem process.Memory, addr, length uint64) (uint64, error) {
	if length < 5 {
		return 0, process.ErrArgumentInvalid
	}
	var buf [4]byte
	if err := mem.MemReadInto(buf[:], addr+length-4); err != nil {
		return 0, err
	}
	rel := int32(binary.LittleEndian.Uint32(buf[:]))
	return addr + length + uint64(int64(rel)), nil
}
