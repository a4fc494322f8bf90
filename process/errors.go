package process

import (
	"errors"
	"fmt"
)

var (
	ErrArchUnsupported = errors.New("architecture unsupported")
	ErrAddressInvalid  = errors.New("address invalid")
	ErrModuleNotFound  = errors.New("module not found")
	ErrExportNotFound  = errors.New("export not found")
	ErrProtection      = errors.New("memory protection violation")
	ErrArgumentInvalid = errors.New("argument invalid")
)

// Fault reports host execution that could not continue at an address.
type Fault struct {
	Addr   uint64
	Module string
	Offset uint64
	Reason string
	Err    error
}

func NewFault(mods Modules, addr uint64, reason string, err error) *Fault {
	f := &Fault{Addr: addr, Reason: reason, Err: err}
	if mods != nil {
		if m, e := mods.FindModuleByAddr(addr); e == nil {
			f.Module = m.Name()
			f.Offset = addr - m.BaseAddr()
		}
	}
	return f
}

func (f *Fault) Error() string {
	var at string
	if f.Module == "" {
		at = fmt.Sprintf("pc: %016X", f.Addr)
	} else {
		at = fmt.Sprintf("module: %s, offset: %08X", f.Module, f.Offset)
	}
	if f.Err != nil {
		return fmt.Sprintf("[Fault] %s, %s: %v", at, f.Reason, f.Err)
	}
	return fmt.Sprintf("[Fault] %s, %s", at, f.Reason)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
