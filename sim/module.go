package sim

import (
	"slices"
	"strings"
	"sync"

	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/process"
)

type Module struct {
	name    string
	base    uint64
	size    uint64
	exports map[string]uint64
}

type moduleManager struct {
	mu     sync.Mutex
	loaded []*Module
}

func (mm *moduleManager) dtor() {
	mm.mu.Lock()
	mm.loaded = nil
	mm.mu.Unlock()
}

// Load maps img at its base and registers it; the first image loaded is
// the main module.
func (p *Process) Load(img *loader.Image) (*Module, error) {
	m := &Module{
		name:    img.Name,
		base:    img.Base,
		size:    process.Align(img.Size(), pageSize),
		exports: make(map[string]uint64, len(img.Exports)),
	}
	for _, r := range img.Regions {
		if err := p.MemMap(img.Base+r.Addr, r.Size, r.Prot); err != nil {
			return nil, err
		}
		if err := p.Poke(img.Base+r.Addr, r.Data); err != nil {
			return nil, err
		}
	}
	for name, rva := range img.Exports {
		m.exports[name] = img.Base + rva
	}
	p.moduleManager.load(m)
	return m, nil
}

func (p *Process) Unload(m *Module) error {
	p.moduleManager.unload(m)
	return p.MemUnmap(m.base, m.size)
}

func (mm *moduleManager) load(module *Module) {
	mm.mu.Lock()
	if !slices.Contains(mm.loaded, module) {
		mm.loaded = append(mm.loaded, module)
	}
	mm.mu.Unlock()
}

func (mm *moduleManager) unload(module *Module) {
	mm.mu.Lock()
	mm.loaded = slices.DeleteFunc(mm.loaded, func(m *Module) bool { return m == module })
	mm.mu.Unlock()
}

func (mm *moduleManager) MainModule() (process.Module, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if len(mm.loaded) == 0 {
		return nil, process.ErrModuleNotFound
	}
	return mm.loaded[0], nil
}

func (mm *moduleManager) FindModule(name string) (process.Module, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, module := range mm.loaded {
		if strings.EqualFold(module.name, name) {
			return module, nil
		}
	}
	return nil, process.ErrModuleNotFound
}

func (mm *moduleManager) FindModuleByAddr(addr uint64) (process.Module, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, module := range mm.loaded {
		if addr >= module.base && addr < module.base+module.size {
			return module, nil
		}
	}
	return nil, process.ErrModuleNotFound
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Region() (uint64, uint64) {
	return m.base, m.size
}

func (m *Module) BaseAddr() uint64 {
	return m.base
}

func (m *Module) FindExport(name string) (uint64, error) {
	if addr, ok := m.exports[name]; ok {
		return addr, nil
	}
	return 0, process.ErrExportNotFound
}
