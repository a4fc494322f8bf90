package loader

import (
	"github.com/wnxd/microhook/process"
)

// Region is one section of an image, Addr relative to the image base.
// Data shorter than Size is zero filled.
type Region struct {
	Addr, Size uint64
	Prot       process.MemProt
	Data       []byte
}

func Code(rva uint64, data []byte) Region {
	return Region{Addr: rva, Size: uint64(len(data)), Prot: process.MEM_PROT_READ | process.MEM_PROT_EXEC, Data: data}
}

func Data(rva uint64, data []byte) Region {
	return Region{Addr: rva, Size: uint64(len(data)), Prot: process.MEM_PROT_READ | process.MEM_PROT_WRITE, Data: data}
}
