package hook

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"

	"github.com/wnxd/microhook/process"
)

const (
	nearJumpLen = 5
	farJumpLen  = 14
	opNop       = 0x90
)

type stolen struct {
	code  []byte
	insts []x86asm.Inst
}

func (s stolen) Len() int {
	return len(s.code)
}

func jumpLen(arch process.Arch, from, to uint64) int {
	if arch == process.ARCH_X86_64 && !fitsRel32(from+nearJumpLen, to) {
		return farJumpLen
	}
	return nearJumpLen
}

func fitsRel32(next, to uint64) bool {
	d := int64(to - next)
	return d >= math.MinInt32 && d <= math.MaxInt32
}

// encodeJump writes an unconditional jump from `from` to `to` into buf,
// which must hold jumpLen(arch, from, to) bytes.
func encodeJump(arch process.Arch, buf []byte, from, to uint64) int {
	if jumpLen(arch, from, to) == farJumpLen {
		buf[0], buf[1] = 0xFF, 0x25
		binary.LittleEndian.PutUint32(buf[2:], 0)
		binary.LittleEndian.PutUint64(buf[6:], to)
		return farJumpLen
	}
	buf[0] = 0xE9
	binary.LittleEndian.PutUint32(buf[1:], uint32(to-(from+nearJumpLen)))
	return nearJumpLen
}

// steal decodes whole instructions from code until at least need bytes are
// covered.
func steal(arch process.Arch, code []byte, need int) (stolen, error) {
	var s stolen
	n := 0
	for n < need {
		if n >= len(code) {
			return stolen{}, ErrPrologueTooShort
		}
		inst, err := x86asm.Decode(code[n:], arch.Mode())
		if err != nil {
			return stolen{}, fmt.Errorf("%w: offset %d: %v", ErrInstInvalid, n, err)
		}
		switch inst.Op {
		case x86asm.RET, x86asm.LRET, x86asm.IRET, x86asm.IRETD, x86asm.INT:
			if n+inst.Len < need {
				return stolen{}, ErrPrologueTooShort
			}
		}
		if inst.PCRel != 0 && inst.PCRel != 4 {
			return stolen{}, fmt.Errorf("%w: %v", ErrRelativeAddr, inst)
		}
		s.insts = append(s.insts, inst)
		n += inst.Len
	}
	s.code = append([]byte(nil), code[:n]...)
	return s, nil
}

// relocate rewrites the stolen instructions to run at addr instead of from.
func (s stolen) relocate(from, addr uint64) ([]byte, error) {
	out := append([]byte(nil), s.code...)
	off := 0
	for _, inst := range s.insts {
		if inst.PCRel == 4 {
			p := off + inst.PCRelOff
			disp := int32(binary.LittleEndian.Uint32(out[p:]))
			abs := from + uint64(off+inst.Len) + uint64(int64(disp))
			next := addr + uint64(off+inst.Len)
			if !fitsRel32(next, abs) {
				return nil, fmt.Errorf("%w: %v", ErrRelativeAddr, inst)
			}
			binary.LittleEndian.PutUint32(out[p:], uint32(abs-next))
		}
		off += inst.Len
	}
	return out, nil
}
