package scan

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Pattern is an immutable byte signature where some positions match any
// byte.
type Pattern struct {
	bytes []byte
	wild  []bool
}

// Parse reads a signature written as hex bytes separated by spaces, "?" or
// "??" standing for a wildcard: "8B 0D ?? ?? ?? ?? 8B 84 24".
func Parse(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Pattern{}, ErrPatternEmpty
	}
	p := Pattern{bytes: make([]byte, len(fields)), wild: make([]bool, len(fields))}
	for i, f := range fields {
		if f == "?" || f == "??" {
			p.wild[i] = true
			continue
		}
		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			return Pattern{}, fmt.Errorf("%w: %q at %d", ErrPatternSyntax, f, i)
		}
		p.bytes[i] = b[0]
	}
	if p.allWild() {
		return Pattern{}, ErrPatternEmpty
	}
	return p, nil
}

func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromMask pairs raw bytes with a mask in which 'x' is a literal byte and
// '?' a wildcard.
func FromMask(bytes []byte, mask string) (Pattern, error) {
	if len(bytes) != len(mask) {
		return Pattern{}, fmt.Errorf("%w: %d bytes, mask of %d", ErrPatternSyntax, len(bytes), len(mask))
	} else if len(bytes) == 0 {
		return Pattern{}, ErrPatternEmpty
	}
	p := Pattern{bytes: make([]byte, len(bytes)), wild: make([]bool, len(bytes))}
	for i := range mask {
		switch mask[i] {
		case 'x':
			p.bytes[i] = bytes[i]
		case '?':
			p.wild[i] = true
		default:
			return Pattern{}, fmt.Errorf("%w: mask %q at %d", ErrPatternSyntax, mask[i], i)
		}
	}
	if p.allWild() {
		return Pattern{}, ErrPatternEmpty
	}
	return p, nil
}

func (p Pattern) Len() int {
	return len(p.bytes)
}

// At returns the byte at i and whether it is a wildcard.
func (p Pattern) At(i int) (byte, bool) {
	return p.bytes[i], p.wild[i]
}

func (p Pattern) String() string {
	var sb strings.Builder
	for i := range p.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.wild[i] {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", p.bytes[i])
		}
	}
	return sb.String()
}

func (p Pattern) allWild() bool {
	for _, w := range p.wild {
		if !w {
			return false
		}
	}
	return true
}

// anchor is the first literal position; matching starts by searching it.
func (p Pattern) anchor() int {
	for i, w := range p.wild {
		if !w {
			return i
		}
	}
	return -1
}
