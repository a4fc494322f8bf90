package hook

import (
	"errors"
	"fmt"

	"github.com/wnxd/microhook/process"
)

// Record is one installed redirection.
type Record struct {
	r           *Redirector
	target      uint64
	replacement uint64
	trampoline  uint64
	saved       []byte
	entry       process.Entry
	original    Original
}

func (rec *Record) Target() uint64 {
	return rec.target
}

func (rec *Record) Replacement() uint64 {
	return rec.replacement
}

// Saved returns the prologue bytes the jump overwrote.
func (rec *Record) Saved() []byte {
	return append([]byte(nil), rec.saved...)
}

func (rec *Record) Original() Original {
	return rec.original
}

func (rec *Record) Close() error {
	r := rec.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[rec.target] != rec {
		return fmt.Errorf("%w: %016X", ErrHookNotFound, rec.target)
	}
	return r.remove(rec)
}

func (rec *Record) String() string {
	return fmt.Sprintf("%016X -> %016X (trampoline %016X, %d bytes)", rec.target, rec.replacement, rec.trampoline, len(rec.saved))
}

// Original calls the behaviour of a host function as it was before the
// redirection, through its trampoline.
type Original struct {
	exec process.Executor
	addr uint64
}

func (o Original) Addr() uint64 {
	return o.addr
}

func (o Original) Valid() bool {
	return o.exec != nil
}

// Call runs the original. A host fault is raised as a *process.Fault panic
// so that it unwinds to the outermost host call.
func (o Original) Call(args ...uint64) uint64 {
	ret, err := o.exec.Call(o.addr, args...)
	if err != nil {
		var f *process.Fault
		if !errors.As(err, &f) {
			f = process.NewFault(nil, o.addr, "call original", err)
		}
		panic(f)
	}
	return ret
}
