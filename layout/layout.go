// Package layout copies flat host structures between host memory and Go
// values. Field order and host natural alignment decide the host offsets;
// fields of type Ptr, int, uint and uintptr take the host pointer size.
package layout

import (
	"errors"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
	"github.com/wnxd/microhook/process"
)

// Ptr is a host pointer-sized field.
type Ptr uint64

var ErrUnsupported = errors.New("layout: unsupported type")

type field struct {
	goOff   uintptr
	goSize  int
	hostOff int
	size    int
	word    bool
}

type plan struct {
	fields []field
	size   int
	align  int
}

var (
	plans   sync.Map
	ptrType = reflect.TypeFor[Ptr]()
)

func Read(mem process.Memory, addr uint64, out any) error {
	typ, ptr, err := target(out)
	if err != nil {
		return err
	}
	p, err := planOf(typ, int(mem.Arch().PointerSize()))
	if err != nil {
		return err
	}
	buf := make([]byte, p.size)
	if err := mem.MemReadInto(buf, addr); err != nil {
		return err
	}
	for _, f := range p.fields {
		dst := unsafe.Slice((*byte)(unsafe.Add(ptr, f.goOff)), f.goSize)
		src := buf[f.hostOff : f.hostOff+f.size]
		if f.word {
			clear(dst)
		}
		copy(dst, src)
	}
	return nil
}

func Write(mem process.Memory, addr uint64, in any) error {
	typ, ptr, err := target(in)
	if err != nil {
		return err
	}
	p, err := planOf(typ, int(mem.Arch().PointerSize()))
	if err != nil {
		return err
	}
	buf := make([]byte, p.size)
	if err := mem.MemReadInto(buf, addr); err != nil {
		return err
	}
	for _, f := range p.fields {
		src := unsafe.Slice((*byte)(unsafe.Add(ptr, f.goOff)), f.goSize)
		copy(buf[f.hostOff:f.hostOff+f.size], src)
	}
	return mem.MemWrite(addr, buf)
}

// Sizeof returns the host size of T for the given architecture.
func Sizeof[T any](arch process.Arch) (int, error) {
	p, err := planOf(reflect2.Type2(reflect.TypeFor[T]()), int(arch.PointerSize()))
	if err != nil {
		return 0, err
	}
	return p.size, nil
}

// Offsetof returns the host offset of the named field of T.
func Offsetof[T any](arch process.Arch, name string) (int, error) {
	typ := reflect2.Type2(reflect.TypeFor[T]())
	p, err := planOf(typ, int(arch.PointerSize()))
	if err != nil {
		return 0, err
	}
	st := typ.(reflect2.StructType)
	f := st.FieldByName(name)
	if f == nil {
		return 0, ErrUnsupported
	}
	for _, pf := range p.fields {
		if pf.goOff == f.Offset() {
			return pf.hostOff, nil
		}
	}
	return 0, ErrUnsupported
}

func target(v any) (reflect2.Type, unsafe.Pointer, error) {
	if v == nil {
		return nil, nil, process.ErrArgumentInvalid
	}
	typ := reflect2.TypeOf(v)
	if typ.Kind() != reflect.Ptr {
		return nil, nil, process.ErrArgumentInvalid
	}
	pt := typ.(reflect2.PtrType)
	ptr := reflect2.PtrOf(v)
	if ptr == nil {
		return nil, nil, process.ErrArgumentInvalid
	}
	return pt.Elem(), ptr, nil
}

func planOf(typ reflect2.Type, ps int) (*plan, error) {
	if ps == 0 {
		return nil, process.ErrArchUnsupported
	}
	key := [2]uintptr{uintptr(ps), typ.RType()}
	if v, ok := plans.Load(key); ok {
		return v.(*plan), nil
	}
	p, err := build(typ, ps)
	if err != nil {
		return nil, err
	}
	v, _ := plans.LoadOrStore(key, p)
	return v.(*plan), nil
}

func build(typ reflect2.Type, ps int) (*plan, error) {
	st, ok := typ.(reflect2.StructType)
	if !ok {
		return nil, ErrUnsupported
	}
	p := &plan{align: 1}
	var off int
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Tag().Get("layout") == "ignore" {
			continue
		}
		t := f.Type().Type1()
		size, align, word, err := hostSize(t, ps)
		if err != nil {
			return nil, err
		}
		off = process.Align(off, align)
		p.fields = append(p.fields, field{
			goOff:   f.Offset(),
			goSize:  int(t.Size()),
			hostOff: off,
			size:    min(size, int(t.Size())),
			word:    word,
		})
		off += size
		p.align = max(p.align, align)
	}
	p.size = process.Align(off, p.align)
	return p, nil
}

func hostSize(t reflect.Type, ps int) (size, align int, word bool, err error) {
	if t == ptrType {
		return ps, ps, true, nil
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1, 1, false, nil
	case reflect.Int16, reflect.Uint16:
		return 2, 2, false, nil
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4, 4, false, nil
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8, 8, false, nil
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return ps, ps, true, nil
	case reflect.Array:
		elem := t.Elem()
		size, align, word, err = hostSize(elem, ps)
		if err != nil {
			return
		} else if word || size != int(elem.Size()) {
			return 0, 0, false, ErrUnsupported
		}
		return size * t.Len(), align, false, nil
	}
	return 0, 0, false, ErrUnsupported
}
