package sim

import (
	"sync"

	"github.com/wnxd/microhook/process"
)

const (
	ctrlSlotSize = 0x10
	ctrlInsn     = 0xCC
)

type gate struct {
	mu        sync.Mutex
	ctrlAddrs []chan uint64
	entries   sync.Map
}

type entry struct {
	g    *gate
	addr uint64
	fn   process.Func
	once sync.Once
}

func (g *gate) ctor() {}

func (g *gate) dtor() {
	g.entries.Clear()
}

func (p *Process) allocCtrlAddrs() error {
	region, err := p.MemAlloc(pageSize, process.MEM_PROT_READ|process.MEM_PROT_EXEC)
	if err != nil {
		return err
	}
	slot := make([]byte, ctrlSlotSize)
	for i := range slot {
		slot[i] = ctrlInsn
	}
	count := region.Size / ctrlSlotSize
	ch := make(chan uint64, count)
	for addr := region.Addr; addr < region.End(); addr += ctrlSlotSize {
		p.Poke(addr, slot)
		ch <- addr
	}
	p.gate.ctrlAddrs = append(p.gate.ctrlAddrs, ch)
	return nil
}

func (p *Process) ctrlAddrAlloc() (addr uint64, err error) {
	p.gate.mu.Lock()
	defer p.gate.mu.Unlock()
	for {
		for _, ch := range p.gate.ctrlAddrs {
			select {
			case addr = <-ch:
				return
			default:
			}
		}
		err = p.allocCtrlAddrs()
		if err != nil {
			return
		}
	}
}

func (g *gate) ctrlAddrFree(addr uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.ctrlAddrs {
		select {
		case ch <- addr:
			return
		default:
		}
	}
}

// Bind hands out a control slot; executing it runs fn.
func (p *Process) Bind(fn process.Func) (process.Entry, error) {
	if fn == nil {
		return nil, process.ErrArgumentInvalid
	}
	addr, err := p.ctrlAddrAlloc()
	if err != nil {
		return nil, err
	}
	e := &entry{g: &p.gate, addr: addr, fn: fn}
	p.gate.entries.Store(addr, e)
	return e, nil
}

func (g *gate) lookup(addr uint64) (process.Func, bool) {
	if v, ok := g.entries.Load(addr); ok {
		return v.(*entry).fn, true
	}
	return nil, false
}

func (e *entry) Addr() uint64 {
	return e.addr
}

func (e *entry) Close() error {
	e.once.Do(func() {
		e.g.entries.Delete(e.addr)
		e.g.ctrlAddrFree(e.addr)
	})
	return nil
}
