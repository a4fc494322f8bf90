package process

import (
	"io"
	"math"
)

// Func is host code expressed in Go: it receives the raw argument words of
// the call and returns the raw result word.
type Func = func(args ...uint64) uint64

type Executor interface {
	Call(addr uint64, args ...uint64) (uint64, error)
}

type Entry interface {
	io.Closer
	Addr() uint64
}

// Gate exposes Go functions to host code as callable entry addresses.
type Gate interface {
	Bind(fn Func) (Entry, error)
}

type Process interface {
	Memory
	Executor
	Gate
	Modules
}

func F32(v float32) uint64 {
	return uint64(math.Float32bits(v))
}

func FromF32(v uint64) float32 {
	return math.Float32frombits(uint32(v))
}

func Bool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// Arg returns args[i], or zero when the caller passed fewer words.
func Arg(args []uint64, i int) uint64 {
	if i < len(args) {
		return args[i]
	}
	return 0
}
