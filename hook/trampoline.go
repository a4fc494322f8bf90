package hook

import "github.com/wnxd/microhook/process"

const slotSize = 0x40

func (r *Redirector) allocSlots() error {
	size := r.proc.PageSize()
	region, err := r.proc.MemAlloc(size, process.MEM_PROT_ALL)
	if err != nil {
		return err
	}
	ch := make(chan uint64, region.Size/slotSize)
	for addr := region.Addr; addr+slotSize <= region.End(); addr += slotSize {
		ch <- addr
	}
	r.slots = append(r.slots, ch)
	r.slotPages = append(r.slotPages, region)
	return nil
}

// slotAlloc is called with r.mu held.
func (r *Redirector) slotAlloc() (addr uint64, err error) {
	for {
		for _, ch := range r.slots {
			select {
			case addr = <-ch:
				return
			default:
			}
		}
		if err = r.allocSlots(); err != nil {
			return
		}
	}
}

func (r *Redirector) slotFree(addr uint64) {
	for i, ch := range r.slots {
		if r.slotPages[i].Contains(addr) {
			select {
			case ch <- addr:
			default:
			}
			return
		}
	}
}
