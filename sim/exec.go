package sim

import (
	"encoding/binary"
	"errors"

	"golang.org/x/arch/x86/x86asm"

	"github.com/wnxd/microhook/process"
)

const (
	maxInsnLen  = 15
	maxPrologue = 0x40
)

// Call runs host code at addr. A fault raised anywhere below, including
// inside a Go function that called back into the host, ends the outermost
// Call with that fault.
func (p *Process) Call(addr uint64, args ...uint64) (ret uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			var f *process.Fault
			if e, ok := r.(error); ok && errors.As(e, &f) {
				err = f
				return
			}
			panic(r)
		}
	}()
	return p.exec(addr, args), nil
}

func (p *Process) exec(addr uint64, args []uint64) uint64 {
	for hop := 0; hop < maxHops; hop++ {
		code, err := p.fetchCode(addr)
		if err != nil {
			panic(process.NewFault(p, addr, "fetch", err))
		}
		if code[0] == ctrlInsn {
			if fn, ok := p.gate.lookup(addr); ok {
				return fn(args...)
			}
		}
		inst, err := x86asm.Decode(code, p.arch.Mode())
		if err != nil {
			panic(process.NewFault(p, addr, "invalid instruction", err))
		}
		if target, ok, err := p.jumpTarget(inst, addr); err != nil {
			panic(process.NewFault(p, addr, "jump operand", err))
		} else if ok {
			addr = target
			continue
		}
		if n, ok := p.native(addr); ok {
			return n.fn(args...)
		}
		if n, ok := p.resume(addr); ok {
			return n.fn(args...)
		}
		panic(process.NewFault(p, addr, "no host code", nil))
	}
	panic(process.NewFault(p, addr, "jump chain too long", nil))
}

// resume recognises a prologue copied out of line: plain instructions
// followed by a jump back into the body of a host function, at the same
// distance from its entry as the copied bytes are long.
func (p *Process) resume(addr uint64) (native, bool) {
	for k := uint64(0); k < maxPrologue; {
		code, err := p.fetchCode(addr + k)
		if err != nil {
			return native{}, false
		}
		inst, err := x86asm.Decode(code, p.arch.Mode())
		if err != nil {
			return native{}, false
		}
		target, ok, err := p.jumpTarget(inst, addr+k)
		if err != nil {
			return native{}, false
		} else if ok {
			if k == 0 || target < k {
				return native{}, false
			}
			n, ok := p.native(target - k)
			return n, ok && k <= n.size
		}
		switch inst.Op {
		case x86asm.RET, x86asm.CALL:
			return native{}, false
		}
		k += uint64(inst.Len)
	}
	return native{}, false
}

// jumpTarget resolves unconditional jumps: rel8/rel32 and jmp [mem].
func (p *Process) jumpTarget(inst x86asm.Inst, addr uint64) (uint64, bool, error) {
	if inst.Op != x86asm.JMP {
		return 0, false, nil
	}
	next := addr + uint64(inst.Len)
	switch arg := inst.Args[0].(type) {
	case x86asm.Rel:
		target := next + uint64(int64(arg))
		if p.arch == process.ARCH_X86 {
			target &= 0xFFFFFFFF
		}
		return target, true, nil
	case x86asm.Mem:
		var slot uint64
		switch {
		case arg.Base == x86asm.RIP && arg.Index == 0:
			slot = next + uint64(arg.Disp)
		case arg.Base == 0 && arg.Index == 0:
			slot = uint64(arg.Disp)
		default:
			return 0, false, nil
		}
		var buf [8]byte
		ps := p.arch.PointerSize()
		if err := p.fetch(buf[:ps], slot); err != nil {
			if err := p.MemReadInto(buf[:ps], slot); err != nil {
				return 0, false, err
			}
		}
		return binary.LittleEndian.Uint64(buf[:]), true, nil
	}
	return 0, false, nil
}

// fetchCode reads up to one maximal instruction of executable bytes,
// stopping early at the end of the executable mapping.
func (p *Process) fetchCode(addr uint64) ([]byte, error) {
	buf := make([]byte, maxInsnLen)
	n := min(uint64(maxInsnLen), process.Align(addr+1, pageSize)-addr)
	if err := p.fetch(buf[:n], addr); err != nil {
		return nil, err
	}
	if n < maxInsnLen && p.fetch(buf[n:], addr+n) != nil {
		return buf[:n], nil
	}
	return buf, nil
}
