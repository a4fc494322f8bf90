package native

import (
	"errors"
	"fmt"
	"path/filepath"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/wnxd/microhook/process"
)

func (p *Process) MemRegions() ([]process.MemRegion, error) {
	var regions []process.MemRegion
	var mbi windows.MemoryBasicInformation
	for addr := uintptr(0); ; {
		if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			break
		}
		if mbi.State == windows.MEM_COMMIT && mbi.Protect&windows.PAGE_GUARD == 0 {
			regions = append(regions, process.MemRegion{
				Addr: uint64(mbi.BaseAddress),
				Size: uint64(mbi.RegionSize),
				Prot: fromPageProt(mbi.Protect),
			})
		}
		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}
	return regions, nil
}

func fromPageProt(prot uint32) process.MemProt {
	switch prot &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return process.MEM_PROT_READ
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return process.MEM_PROT_READ | process.MEM_PROT_WRITE
	case windows.PAGE_EXECUTE:
		return process.MEM_PROT_EXEC
	case windows.PAGE_EXECUTE_READ:
		return process.MEM_PROT_READ | process.MEM_PROT_EXEC
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return process.MEM_PROT_ALL
	}
	return process.MEM_PROT_NONE
}

func toPageProt(prot process.MemProt) uint32 {
	switch prot {
	case process.MEM_PROT_READ:
		return windows.PAGE_READONLY
	case process.MEM_PROT_READ | process.MEM_PROT_WRITE, process.MEM_PROT_WRITE:
		return windows.PAGE_READWRITE
	case process.MEM_PROT_EXEC:
		return windows.PAGE_EXECUTE
	case process.MEM_PROT_READ | process.MEM_PROT_EXEC:
		return windows.PAGE_EXECUTE_READ
	case process.MEM_PROT_ALL, process.MEM_PROT_WRITE | process.MEM_PROT_EXEC:
		return windows.PAGE_EXECUTE_READWRITE
	}
	return windows.PAGE_NOACCESS
}

func (p *Process) MemProtect(addr, size uint64, prot process.MemProt) error {
	var old uint32
	if err := windows.VirtualProtect(uintptr(addr), uintptr(size), toPageProt(prot), &old); err != nil {
		return fmt.Errorf("VirtualProtect %#x+%#x: %w", addr, size, err)
	}
	return nil
}

func (p *Process) MemAlloc(size uint64, prot process.MemProt) (process.MemRegion, error) {
	size = process.Align(max(size, 1), p.pageSize)
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, toPageProt(prot))
	if err != nil {
		return process.MemRegion{}, fmt.Errorf("VirtualAlloc %#x: %w", size, err)
	}
	return process.MemRegion{Addr: uint64(addr), Size: size, Prot: prot}, nil
}

func (p *Process) MemFree(addr, size uint64) error {
	return windows.VirtualFree(uintptr(addr), 0, windows.MEM_RELEASE)
}

func (p *Process) module(h windows.Handle) (process.Module, error) {
	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(windows.CurrentProcess(), h, &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return nil, err
	}
	var name [windows.MAX_PATH]uint16
	n, err := windows.GetModuleFileName(h, &name[0], windows.MAX_PATH)
	if err != nil {
		return nil, err
	}
	return &module{
		name: filepath.Base(syscall.UTF16ToString(name[:n])),
		base: uint64(mi.BaseOfDll),
		size: uint64(mi.SizeOfImage),
		exports: func(export string) (uint64, error) {
			addr, err := windows.GetProcAddress(h, export)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", export, process.ErrExportNotFound)
			}
			return uint64(addr), nil
		},
	}, nil
}

func (p *Process) MainModule() (process.Module, error) {
	var h windows.Handle
	if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, nil, &h); err != nil {
		return nil, err
	}
	return p.module(h)
}

func (p *Process) FindModule(name string) (process.Module, error) {
	wname, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, wname, &h); err != nil {
		return nil, process.ErrModuleNotFound
	}
	return p.module(h)
}

func (p *Process) FindModuleByAddr(addr uint64) (process.Module, error) {
	var h windows.Handle
	flags := uint32(windows.GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS | windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT)
	if err := windows.GetModuleHandleEx(flags, (*uint16)(unsafe.Pointer(uintptr(addr))), &h); err != nil {
		return nil, process.ErrModuleNotFound
	}
	return p.module(h)
}

// Call invokes addr with the platform calling convention.
func (p *Process) Call(addr uint64, args ...uint64) (uint64, error) {
	words := make([]uintptr, len(args))
	for i, a := range args {
		words[i] = uintptr(a)
	}
	r, _, _ := syscall.SyscallN(uintptr(addr), words...)
	return uint64(r), nil
}

type callback struct {
	addr uintptr
}

func (c callback) Addr() uint64 {
	return uint64(c.addr)
}

// Close is a no-op, callbacks live as long as the process.
func (c callback) Close() error {
	return nil
}

// Bind exposes fn through syscall.NewCallback. The callback takes eight
// argument words. On 386 the callee pops its arguments, so the argument
// count of the replaced function is unknown here and Bind is unsupported.
func (p *Process) Bind(fn process.Func) (process.Entry, error) {
	if fn == nil {
		return nil, process.ErrArgumentInvalid
	}
	if p.arch != process.ARCH_X86_64 {
		return nil, errors.ErrUnsupported
	}
	addr := syscall.NewCallback(func(a0, a1, a2, a3, a4, a5, a6, a7 uintptr) uintptr {
		return uintptr(fn(uint64(a0), uint64(a1), uint64(a2), uint64(a3),
			uint64(a4), uint64(a5), uint64(a6), uint64(a7)))
	})
	return callback{addr}, nil
}
