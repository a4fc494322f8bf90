package process

import (
	"encoding/binary"
	"slices"

	"golang.org/x/text/encoding/unicode"
)

type Pointer struct {
	mem  Memory
	addr uint64
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func ToPointer(mem Memory, addr uint64) Pointer {
	return Pointer{mem, addr}
}

func (p Pointer) IsNil() bool {
	return p.addr == 0
}

func (p Pointer) Address() uint64 {
	return p.addr
}

func (p Pointer) Memory() Memory {
	return p.mem
}

func (p Pointer) Add(offset uint64) Pointer {
	return Pointer{p.mem, p.addr + offset}
}

func (p Pointer) Sub(offset uint64) Pointer {
	return Pointer{p.mem, p.addr - offset}
}

// Index returns the pointer to the i-th pointer-sized slot after p.
func (p Pointer) Index(i int) Pointer {
	return p.Add(uint64(i) * p.mem.Arch().PointerSize())
}

func (p Pointer) ReadBytes(size uint64) ([]byte, error) {
	return p.mem.MemRead(p.addr, size)
}

func (p Pointer) WriteBytes(data []byte) error {
	return p.mem.MemWrite(p.addr, data)
}

func (p Pointer) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := p.mem.MemReadInto(buf[:], p.addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (p Pointer) ReadInt32() (int32, error) {
	v, err := p.ReadUint32()
	return int32(v), err
}

func (p Pointer) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := p.mem.MemReadInto(buf[:], p.addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (p Pointer) ReadPointer() (Pointer, error) {
	switch p.mem.Arch().PointerSize() {
	case 4:
		v, err := p.ReadUint32()
		return Pointer{p.mem, uint64(v)}, err
	case 8:
		v, err := p.ReadUint64()
		return Pointer{p.mem, v}, err
	}
	return Pointer{}, ErrArchUnsupported
}

func (p Pointer) WritePointer(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return p.mem.MemWrite(p.addr, buf[:p.mem.Arch().PointerSize()])
}

func (p Pointer) ReadCString() (string, error) {
	var data []byte
	var buf [0x10]byte
	for begin := p.addr; ; begin += uint64(len(buf)) {
		if err := p.mem.MemReadInto(buf[:], begin); err != nil {
			return "", err
		}
		i := slices.Index(buf[:], 0)
		if i == -1 {
			data = append(data, buf[:]...)
		} else {
			data = append(data, buf[:i]...)
			break
		}
	}
	return string(data), nil
}

// ReadUTF16String reads a zero terminated UTF-16LE string.
func (p Pointer) ReadUTF16String() (string, error) {
	var data []byte
	var buf [0x20]byte
	for begin := p.addr; ; begin += uint64(len(buf)) {
		if err := p.mem.MemReadInto(buf[:], begin); err != nil {
			return "", err
		}
		end := -1
		for i := 0; i+1 < len(buf); i += 2 {
			if buf[i] == 0 && buf[i+1] == 0 {
				end = i
				break
			}
		}
		if end == -1 {
			data = append(data, buf[:]...)
		} else {
			data = append(data, buf[:end]...)
			break
		}
	}
	out, err := utf16le.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeUTF16 returns s as zero terminated UTF-16LE bytes.
func EncodeUTF16(s string) ([]byte, error) {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return append(out, 0, 0), nil
}

func (p Pointer) ReadAt(b []byte, off int64) (n int, err error) {
	if err = p.mem.MemReadInto(b, p.addr+uint64(off)); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p Pointer) WriteAt(b []byte, off int64) (n int, err error) {
	if err = p.mem.MemWrite(p.addr+uint64(off), b); err != nil {
		return 0, err
	}
	return len(b), nil
}
