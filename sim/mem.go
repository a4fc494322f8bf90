package sim

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/wnxd/microhook/process"
)

type page struct {
	prot process.MemProt
	data [pageSize]byte
}

type memoryManager struct {
	allocAddr uint64
	mu        sync.RWMutex
	pages     map[uint64]*page
}

func (mm *memoryManager) ctor() {
	mm.allocAddr = defaultAllocBase
	mm.pages = make(map[uint64]*page)
}

func (mm *memoryManager) dtor() {
	mm.mu.Lock()
	clear(mm.pages)
	mm.mu.Unlock()
}

// MemMap maps zeroed pages covering [addr, addr+size).
func (mm *memoryManager) MemMap(addr, size uint64, prot process.MemProt) error {
	begin := process.AlignDown(addr, pageSize)
	end := process.Align(addr+size, pageSize)
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for a := begin; a < end; a += pageSize {
		if _, ok := mm.pages[a]; ok {
			return process.ErrAddressInvalid
		}
	}
	for a := begin; a < end; a += pageSize {
		mm.pages[a] = &page{prot: prot}
	}
	return nil
}

func (mm *memoryManager) MemUnmap(addr, size uint64) error {
	begin := process.AlignDown(addr, pageSize)
	end := process.Align(addr+size, pageSize)
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for a := begin; a < end; a += pageSize {
		delete(mm.pages, a)
	}
	return nil
}

func (mm *memoryManager) MemProtect(addr, size uint64, prot process.MemProt) error {
	begin := process.AlignDown(addr, pageSize)
	end := process.Align(addr+size, pageSize)
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for a := begin; a < end; a += pageSize {
		if _, ok := mm.pages[a]; !ok {
			return process.ErrAddressInvalid
		}
	}
	for a := begin; a < end; a += pageSize {
		mm.pages[a].prot = prot
	}
	return nil
}

func (mm *memoryManager) MemAlloc(size uint64, prot process.MemProt) (process.MemRegion, error) {
	size = process.Align(max(size, 1), pageSize)
	addr := atomic.AddUint64(&mm.allocAddr, size) - size
	if err := mm.MemMap(addr, size, prot); err != nil {
		return process.MemRegion{}, err
	}
	return process.MemRegion{Addr: addr, Size: size, Prot: prot}, nil
}

func (mm *memoryManager) MemFree(addr, size uint64) error {
	return mm.MemUnmap(addr, size)
}

// MemRegions coalesces adjacent pages of equal protection.
func (mm *memoryManager) MemRegions() ([]process.MemRegion, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	var regions []process.MemRegion
	for _, a := range slices.Sorted(maps.Keys(mm.pages)) {
		prot := mm.pages[a].prot
		if n := len(regions) - 1; n >= 0 && regions[n].End() == a && regions[n].Prot == prot {
			regions[n].Size += pageSize
			continue
		}
		regions = append(regions, process.MemRegion{Addr: a, Size: pageSize, Prot: prot})
	}
	return regions, nil
}

func (mm *memoryManager) MemRead(addr, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := mm.MemReadInto(buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

func (mm *memoryManager) MemReadInto(p []byte, addr uint64) error {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.access(addr, p, process.MEM_PROT_READ, false)
}

func (mm *memoryManager) MemWrite(addr uint64, data []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.access(addr, data, process.MEM_PROT_WRITE, true)
}

// Poke writes data ignoring page protection.
func (mm *memoryManager) Poke(addr uint64, data []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.access(addr, data, process.MEM_PROT_NONE, true)
}

func (mm *memoryManager) fetch(p []byte, addr uint64) error {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.access(addr, p, process.MEM_PROT_EXEC, false)
}

// Prot reports the protection of the page holding addr.
func (mm *memoryManager) Prot(addr uint64) (process.MemProt, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	pg, ok := mm.pages[process.AlignDown(addr, pageSize)]
	if !ok {
		return process.MEM_PROT_NONE, false
	}
	return pg.prot, true
}

// Alloc maps fresh read/write pages holding data.
func (mm *memoryManager) Alloc(data []byte) (uint64, error) {
	region, err := mm.MemAlloc(uint64(len(data)), process.MEM_PROT_READ|process.MEM_PROT_WRITE)
	if err != nil {
		return 0, err
	}
	return region.Addr, mm.Poke(region.Addr, data)
}

func (mm *memoryManager) access(addr uint64, buf []byte, need process.MemProt, write bool) error {
	end := addr + uint64(len(buf))
	for base := process.AlignDown(addr, pageSize); base < end; base += pageSize {
		pg, ok := mm.pages[base]
		if !ok {
			return process.ErrAddressInvalid
		} else if pg.prot&need != need {
			return process.ErrProtection
		}
	}
	for done := 0; done < len(buf); {
		a := addr + uint64(done)
		base := process.AlignDown(a, pageSize)
		pg := mm.pages[base]
		off := a - base
		var n int
		if write {
			n = copy(pg.data[off:], buf[done:])
		} else {
			n = copy(buf[done:], pg.data[off:])
		}
		done += n
	}
	return nil
}
