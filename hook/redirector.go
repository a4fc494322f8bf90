// Package hook redirects host functions to replacements by overwriting
// their first instructions with a jump, keeping an out-of-line copy of the
// overwritten prologue so the original behaviour stays callable.
package hook

import (
	"fmt"
	"slices"
	"sync"

	"github.com/wnxd/microhook/process"
)

const maxSteal = 0x20

type Redirector struct {
	proc      process.Process
	mu        sync.Mutex
	records   map[uint64]*Record
	order     []*Record
	slots     []chan uint64
	slotPages []process.MemRegion
	closed    bool
}

func New(proc process.Process) *Redirector {
	return &Redirector{
		proc:    proc,
		records: make(map[uint64]*Record),
	}
}

// Install makes every call into target continue at replacement.
func (r *Redirector) Install(target, replacement uint64) (*Record, error) {
	return r.install(target, func(Original) (uint64, process.Entry, error) {
		return replacement, nil, nil
	})
}

// Attach installs a Go replacement. fn receives the original before the
// patch is written and returns the function host callers will reach.
func (r *Redirector) Attach(target uint64, fn func(orig Original) process.Func) (*Record, error) {
	if fn == nil {
		return nil, process.ErrArgumentInvalid
	}
	return r.install(target, func(orig Original) (uint64, process.Entry, error) {
		entry, err := r.proc.Bind(fn(orig))
		if err != nil {
			return 0, nil, err
		}
		return entry.Addr(), entry, nil
	})
}

func (r *Redirector) install(target uint64, replacement func(Original) (uint64, process.Entry, error)) (rec *Record, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	for _, other := range r.records {
		if target >= other.target && target < other.target+uint64(len(other.saved)) {
			return nil, fmt.Errorf("%w: %016X", ErrDoubleHook, target)
		}
	}
	arch := r.proc.Arch()
	code, err := r.readPrologue(target)
	if err != nil {
		return nil, err
	}
	slot, err := r.slotAlloc()
	if err != nil {
		return nil, err
	}
	rec = &Record{
		r:          r,
		target:     target,
		trampoline: slot,
		original:   Original{exec: r.proc, addr: slot},
	}
	rec.replacement, rec.entry, err = replacement(rec.original)
	if err != nil {
		r.slotFree(slot)
		return nil, err
	}
	entry := rec.entry
	defer func() {
		if err != nil {
			if entry != nil {
				entry.Close()
			}
			r.slotFree(slot)
		}
	}()

	s, err := steal(arch, code, jumpLen(arch, target, rec.replacement))
	if err != nil {
		return nil, fmt.Errorf("hook %016X: %w", target, err)
	}
	for addr := range r.records {
		if addr > target && addr < target+uint64(s.Len()) {
			return nil, fmt.Errorf("%w: %016X overlaps %016X", ErrDoubleHook, target, addr)
		}
	}
	tramp, err := s.relocate(target, slot)
	if err != nil {
		return nil, fmt.Errorf("hook %016X: %w", target, err)
	}
	jmp := make([]byte, farJumpLen)
	tramp = append(tramp, jmp[:encodeJump(arch, jmp, slot+uint64(len(tramp)), target+uint64(s.Len()))]...)
	if len(tramp) > slotSize {
		return nil, fmt.Errorf("hook %016X: %w", target, ErrPrologueTooShort)
	}
	if err = r.proc.MemWrite(slot, tramp); err != nil {
		return nil, err
	}
	rec.saved = s.code

	patch := slices.Repeat([]byte{opNop}, s.Len())
	encodeJump(arch, patch, target, rec.replacement)
	if err = r.patch(target, patch); err != nil {
		return nil, err
	}
	r.records[target] = rec
	r.order = append(r.order, rec)
	return rec, nil
}

// readPrologue reads as many bytes at target as the mapping allows, up to
// maxSteal.
func (r *Redirector) readPrologue(target uint64) ([]byte, error) {
	region, err := process.RegionOf(r.proc, target)
	if err != nil {
		return nil, fmt.Errorf("hook %016X: %w", target, err)
	}
	size := min(uint64(maxSteal), region.End()-target)
	if region.Prot&process.MEM_PROT_READ == 0 {
		return r.withProt(target, size, func() ([]byte, error) {
			return r.proc.MemRead(target, size)
		})
	}
	return r.proc.MemRead(target, size)
}

// patch writes code over target in a single write, raising the protection
// of the covered pages for the duration.
func (r *Redirector) patch(target uint64, code []byte) error {
	_, err := r.withProt(target, uint64(len(code)), func() ([]byte, error) {
		return nil, r.proc.MemWrite(target, code)
	})
	return err
}

func (r *Redirector) withProt(addr, size uint64, fn func() ([]byte, error)) ([]byte, error) {
	regions, err := r.proc.MemRegions()
	if err != nil {
		return nil, err
	}
	end := addr + size
	var saved []process.MemRegion
	for _, region := range regions {
		if region.End() <= addr || region.Addr >= end {
			continue
		}
		lo, hi := max(region.Addr, addr), min(region.End(), end)
		if err := r.proc.MemProtect(lo, hi-lo, process.MEM_PROT_ALL); err != nil {
			r.restore(saved)
			return nil, fmt.Errorf("%w: %016X", process.ErrProtection, lo)
		}
		saved = append(saved, process.MemRegion{Addr: lo, Size: hi - lo, Prot: region.Prot})
	}
	if len(saved) == 0 {
		return nil, fmt.Errorf("%w: %016X", process.ErrAddressInvalid, addr)
	}
	data, err := fn()
	r.restore(saved)
	return data, err
}

func (r *Redirector) restore(saved []process.MemRegion) {
	for _, region := range saved {
		r.proc.MemProtect(region.Addr, region.Size, region.Prot)
	}
}

// Uninstall restores the original bytes at target.
func (r *Redirector) Uninstall(target uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[target]
	if !ok {
		return fmt.Errorf("%w: %016X", ErrHookNotFound, target)
	}
	return r.remove(rec)
}

func (r *Redirector) remove(rec *Record) error {
	if err := r.patch(rec.target, rec.saved); err != nil {
		return err
	}
	delete(r.records, rec.target)
	if i := slices.Index(r.order, rec); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	if rec.entry != nil {
		rec.entry.Close()
	}
	r.slotFree(rec.trampoline)
	return nil
}

func (r *Redirector) Installed(target uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[target]
	return ok
}

// Records lists live hooks in installation order.
func (r *Redirector) Records() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Close removes every hook, newest first, and releases the trampoline pages.
func (r *Redirector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		if err := r.remove(r.order[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs[0]
	}
	r.closed = true
	for _, region := range r.slotPages {
		r.proc.MemFree(region.Addr, region.Size)
	}
	r.slots, r.slotPages = nil, nil
	return nil
}
