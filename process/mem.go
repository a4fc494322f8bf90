package process

type MemProt int

const (
	MEM_PROT_NONE MemProt = 0
	MEM_PROT_READ MemProt = 1 << (iota - 1)
	MEM_PROT_WRITE
	MEM_PROT_EXEC

	MEM_PROT_ALL = MEM_PROT_READ | MEM_PROT_WRITE | MEM_PROT_EXEC
)

type MemRegion struct {
	Addr, Size uint64
	Prot       MemProt
}

func (r MemRegion) End() uint64 {
	return r.Addr + r.Size
}

func (r MemRegion) Contains(addr uint64) bool {
	return addr >= r.Addr && addr < r.End()
}

func (p MemProt) String() string {
	b := []byte("---")
	if p&MEM_PROT_READ != 0 {
		b[0] = 'r'
	}
	if p&MEM_PROT_WRITE != 0 {
		b[1] = 'w'
	}
	if p&MEM_PROT_EXEC != 0 {
		b[2] = 'x'
	}
	return string(b)
}

type Memory interface {
	Arch() Arch
	PageSize() uint64
	MemRegions() ([]MemRegion, error)
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, data []byte) error
	MemProtect(addr, size uint64, prot MemProt) error
	// MemAlloc maps fresh pages with the requested protection.
	MemAlloc(size uint64, prot MemProt) (MemRegion, error)
	MemFree(addr, size uint64) error
}

// RegionOf returns the mapped region containing addr.
func RegionOf(mem Memory, addr uint64) (MemRegion, error) {
	regions, err := mem.MemRegions()
	if err != nil {
		return MemRegion{}, err
	}
	for _, r := range regions {
		if r.Contains(addr) {
			return r, nil
		}
	}
	return MemRegion{}, ErrAddressInvalid
}
