package process

type Arch int

const (
	ARCH_UNKNOWN Arch = iota
	ARCH_X86
	ARCH_X86_64
)

func (a Arch) PointerSize() uint64 {
	switch a {
	case ARCH_X86:
		return 4
	case ARCH_X86_64:
		return 8
	}
	return 0
}

// Mode is the decoder operand mode, 32 or 64.
func (a Arch) Mode() int {
	switch a {
	case ARCH_X86:
		return 32
	case ARCH_X86_64:
		return 64
	}
	return 0
}

func (a Arch) String() string {
	switch a {
	case ARCH_X86:
		return "x86"
	case ARCH_X86_64:
		return "x86_64"
	}
	return "unknown"
}
